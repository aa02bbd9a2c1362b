// Package mcpshim adapts internal/runtime's operations to an MCP-shaped
// tool surface: one Go method per named operation, each taking a typed
// input and returning the {summary, data, hints, meta} response envelope
// rather than a bare result or a raw error. The JSON-RPC transport itself
// lives in server.go, the thin seam cmd/memoryd's "serve" subcommand wires
// into github.com/modelcontextprotocol/go-sdk/mcp.
package mcpshim

import "github.com/devalexanderdaza/memoryd/internal/memerr"

// Response is the success-path counterpart to memerr.Envelope: every tool
// handler returns one of these on success, and a memerr.Envelope on
// failure, so both paths share the same {summary, data, hints, meta} shape.
type Response struct {
	Summary string         `json:"summary"`
	Data    any            `json:"data"`
	Hints   []string       `json:"hints,omitempty"`
	Meta    Meta           `json:"meta"`
}

// Meta mirrors memerr.EnvelopeMeta for the success path.
type Meta struct {
	Tool     string          `json:"tool"`
	IsError  bool            `json:"isError"`
	Severity memerr.Severity `json:"severity,omitempty"`
}

func ok(tool, summary string, data any, hints ...string) *Response {
	return &Response{
		Summary: summary,
		Data:    data,
		Hints:   hints,
		Meta:    Meta{Tool: tool, IsError: false},
	}
}
