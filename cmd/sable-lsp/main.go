// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"sable/internal/lsp"
)

const lsName = "sable" // Name identifier for the language server

var (
	handler protocol.Handler
)

func main() {
	// Configure debug logging (1 = debug level, nil = default logger)
	commonlog.Configure(1, nil)

	sableHandler := lsp.NewSableHandler()

	// Wire up the handler with specific LSP method implementations
	handler = protocol.Handler{
		Initialize:            sableHandler.Initialize,
		Initialized:           sableHandler.Initialized,
		Shutdown:              sableHandler.Shutdown,
		SetTrace:              sableHandler.SetTrace,
		TextDocumentDidOpen:   sableHandler.TextDocumentDidOpen,
		TextDocumentDidClose:  sableHandler.TextDocumentDidClose,
		TextDocumentDidChange: sableHandler.TextDocumentDidChange,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting Sable LSP server...")

	// Serve over standard input/output, which is how editors talk to us
	err := s.RunStdio()
	if err != nil {
		log.Println("Error starting Sable LSP server:", err)
		os.Exit(1)
	}
}
