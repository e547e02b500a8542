// Package graph collects the transition graph of an exploration for
// diagnostics. The graph never feeds back into the fixpoint; it only
// renders what happened.
package graph

import (
	"fmt"
	"io"
	"strings"
)

// Kind classifies a node by its control, which decides the node color in
// the DOT rendering.
type Kind int

const (
	KindEval Kind = iota
	KindKont
	KindHaltedKont
	KindError
)

type Node struct {
	ID    int
	Label string
	Kind  Kind
}

type edge struct {
	from, to int
}

// Graph is a directed multigraph with deduplicated unit-labeled edges.
type Graph struct {
	nodes []Node
	seen  map[edge]struct{}
	edges []edge
}

func New() *Graph {
	return &Graph{seen: map[edge]struct{}{}}
}

// AddNode registers a node and returns its id.
func (g *Graph) AddNode(label string, kind Kind) int {
	id := len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id, Label: label, Kind: kind})
	return id
}

// SetKind re-classifies an existing node. The explorer uses this when a
// value node turns out to be halted.
func (g *Graph) SetKind(id int, kind Kind) {
	g.nodes[id].Kind = kind
}

// AddEdge records a directed edge; duplicates are dropped.
func (g *Graph) AddEdge(from, to int) {
	e := edge{from: from, to: to}
	if _, dup := g.seen[e]; dup {
		return
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
}

func (g *Graph) NumNodes() int { return len(g.nodes) }
func (g *Graph) NumEdges() int { return len(g.edges) }

func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns (from, to) id pairs in insertion order.
func (g *Graph) Edges() [][2]int {
	out := make([][2]int, len(g.edges))
	for i, e := range g.edges {
		out[i] = [2]int{e.from, e.to}
	}
	return out
}

func fillColor(k Kind) string {
	switch k {
	case KindEval:
		return "white"
	case KindKont:
		return "lightskyblue"
	case KindHaltedKont:
		return "palegreen"
	case KindError:
		return "lightcoral"
	}
	return "white"
}

// WriteDOT renders the graph in Graphviz DOT format, nodes colored by
// control kind.
func (g *Graph) WriteDOT(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph transitions {"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "  node [shape=box, style=filled];"); err != nil {
		return err
	}
	for _, n := range g.nodes {
		label := strings.ReplaceAll(n.Label, `"`, `\"`)
		if len(label) > 60 {
			label = label[:57] + "..."
		}
		if _, err := fmt.Fprintf(w, "  n%d [label=\"%s\", fillcolor=%s];\n", n.ID, label, fillColor(n.Kind)); err != nil {
			return err
		}
	}
	for _, e := range g.edges {
		if _, err := fmt.Fprintf(w, "  n%d -> n%d;\n", e.from, e.to); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
