package lsp

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"sable/internal/analysis"
)

// analysisTimeout bounds the per-document exploration so the editor never
// waits on a slow fixpoint.
const analysisTimeout = 2 * time.Second

// SableHandler implements the LSP server handlers: every open or change
// re-analyzes the document and publishes the reachable abstract faults as
// diagnostics.
type SableHandler struct {
	mu      sync.RWMutex
	content map[string]string
}

func NewSableHandler() *SableHandler {
	return &SableHandler{
		content: make(map[string]string),
	}
}

// Initialize responds to the LSP client's initialize request and
// advertises the server's capabilities.
func (h *SableHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

func (h *SableHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("Sable LSP initialized")
	return nil
}

func (h *SableHandler) Shutdown(ctx *glsp.Context) error {
	log.Println("Sable LSP shutdown")
	return nil
}

func (h *SableHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor.
func (h *SableHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Printf("Opened file: %s\n", params.TextDocument.URI)
	return h.analyze(ctx, params.TextDocument.URI)
}

// TextDocumentDidChange handles file change notifications from the editor.
func (h *SableHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Printf("Changed file: %s\n", params.TextDocument.URI)
	return h.analyze(ctx, params.TextDocument.URI)
}

// TextDocumentDidClose drops the cached content for a closed file.
func (h *SableHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Printf("Closed file: %s\n", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", params.TextDocument.URI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	return nil
}

// analyze re-reads a document, runs the abstract interpreter over it with
// a short timeout and publishes the resulting diagnostics.
func (h *SableHandler) analyze(ctx *glsp.Context, rawURI protocol.DocumentUri) error {
	path, err := uriToPath(rawURI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	h.mu.Lock()
	h.content[path] = string(content)
	h.mu.Unlock()

	analyzer := analysis.NewAnalyzer()
	analyzer.Timeout = analysisTimeout

	report, err := analyzer.AnalyzeSource(path, string(content))
	if err != nil {
		// Parse or compile failure: a single diagnostic at the offending
		// position.
		sendDiagnostics(ctx, rawURI, ConvertSyntaxError(err))
		return nil
	}

	sendDiagnostics(ctx, rawURI, ConvertReport(report))
	return nil
}

// uriToPath converts an LSP document URI to a platform-local file path.
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func sendDiagnostics(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
