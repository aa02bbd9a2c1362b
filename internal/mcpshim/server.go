package mcpshim

import (
	"context"
	"log/slog"

	gosdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devalexanderdaza/memoryd/internal/memerr"
	"github.com/devalexanderdaza/memoryd/internal/runtime"
	"github.com/devalexanderdaza/memoryd/pkg/version"
)

// Server wires a Shim to the MCP JSON-RPC transport via
// github.com/modelcontextprotocol/go-sdk/mcp.
type Server struct {
	mcp    *gosdkmcp.Server
	shim   *Shim
	logger *slog.Logger
}

// NewServer builds a Server around rt and registers every tool.
func NewServer(rt *runtime.Runtime, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		shim:   New(rt),
		logger: logger,
	}
	s.mcp = gosdkmcp.NewServer(&gosdkmcp.Implementation{
		Name:    "memoryd",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s
}

// registerTools registers every operation the shim exposes.
func (s *Server) registerTools() {
	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_search",
		Description: "Hybrid vector + lexical search over stored memories, with RRF fusion, smart ranking, and constitutional-memory prelude.",
	}, s.handleMemorySearch)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_match_triggers",
		Description: "Fast exact/near-exact trigger-phrase surfacing for a prompt, for proactive memory injection.",
	}, s.handleMemoryMatchTriggers)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_save",
		Description: "Parse and index markdown content as one or more memories.",
	}, s.handleMemorySave)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_update",
		Description: "Patch a memory's mutable fields by id, re-embedding when content changes.",
	}, s.handleMemoryUpdate)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_delete",
		Description: "Delete a memory by id from the catalog and every in-process index.",
	}, s.handleMemoryDelete)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_index_scan",
		Description: "Walk the allow-listed read roots and upsert every markdown memory found.",
	}, s.handleMemoryIndexScan)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_validate",
		Description: "Nudge a memory's confidence toward useful/not-useful based on feedback.",
	}, s.handleMemoryValidate)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "checkpoint_create",
		Description: "Snapshot the current (optionally scoped) memories and their embeddings under a name.",
	}, s.handleCheckpointCreate)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "checkpoint_list",
		Description: "List known checkpoints, optionally scoped to one spec folder.",
	}, s.handleCheckpointList)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "checkpoint_restore",
		Description: "Restore a named checkpoint, reconciling memories by (file_path, spec_folder) UPSERT.",
	}, s.handleCheckpointRestore)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "checkpoint_delete",
		Description: "Delete a checkpoint by name.",
	}, s.handleCheckpointDelete)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_health",
		Description: "Report DB path, schema version, active embedding profile, and catalog counts.",
	}, s.handleMemoryHealth)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_verify_integrity",
		Description: "Scan for orphan embeddings and memories missing their embedding row, optionally auto-cleaning.",
	}, s.handleMemoryVerifyIntegrity)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "task_preflight",
		Description: "Collaborator seam: session-learning preflight metadata (not computed by this repository).",
	}, s.handleTaskPreflight)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "task_postflight",
		Description: "Collaborator seam: session-learning postflight metadata (not computed by this repository).",
	}, s.handleTaskPostflight)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_get_learning_history",
		Description: "Collaborator seam: session-learning history (owned outside this repository's core).",
	}, s.handleMemoryGetLearningHistory)

	s.logger.Info("mcp tools registered", slog.Int("count", 15))
}

// Serve runs the MCP server over stdio until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &gosdkmcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp server stopped with error", slog.Any("error", err))
		return err
	}
	s.logger.Info("mcp server stopped gracefully")
	return nil
}

func (s *Server) handleMemorySearch(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemorySearchInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemorySearch(ctx, in)
	return nil, resp, s.logged("memory_search", err)
}

func (s *Server) handleMemoryMatchTriggers(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemoryMatchTriggersInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemoryMatchTriggers(ctx, in)
	return nil, resp, s.logged("memory_match_triggers", err)
}

func (s *Server) handleMemorySave(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemorySaveInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemorySave(ctx, in)
	return nil, resp, s.logged("memory_save", err)
}

func (s *Server) handleMemoryUpdate(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemoryUpdateInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemoryUpdate(ctx, in)
	return nil, resp, s.logged("memory_update", err)
}

func (s *Server) handleMemoryDelete(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemoryDeleteInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemoryDelete(ctx, in)
	return nil, resp, s.logged("memory_delete", err)
}

func (s *Server) handleMemoryIndexScan(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemoryIndexScanInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemoryIndexScan(ctx, in)
	return nil, resp, s.logged("memory_index_scan", err)
}

func (s *Server) handleMemoryValidate(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemoryValidateInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemoryValidate(ctx, in)
	return nil, resp, s.logged("memory_validate", err)
}

func (s *Server) handleCheckpointCreate(ctx context.Context, _ *gosdkmcp.CallToolRequest, in CheckpointCreateInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.CheckpointCreate(ctx, in)
	return nil, resp, s.logged("checkpoint_create", err)
}

func (s *Server) handleCheckpointList(ctx context.Context, _ *gosdkmcp.CallToolRequest, in CheckpointListInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.CheckpointList(ctx, in)
	return nil, resp, s.logged("checkpoint_list", err)
}

func (s *Server) handleCheckpointRestore(ctx context.Context, _ *gosdkmcp.CallToolRequest, in CheckpointRestoreInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.CheckpointRestore(ctx, in)
	return nil, resp, s.logged("checkpoint_restore", err)
}

func (s *Server) handleCheckpointDelete(ctx context.Context, _ *gosdkmcp.CallToolRequest, in CheckpointDeleteInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.CheckpointDelete(ctx, in)
	return nil, resp, s.logged("checkpoint_delete", err)
}

func (s *Server) handleMemoryHealth(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemoryHealthInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemoryHealth(ctx, in)
	return nil, resp, s.logged("memory_health", err)
}

func (s *Server) handleMemoryVerifyIntegrity(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemoryVerifyIntegrityInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemoryVerifyIntegrity(ctx, in)
	return nil, resp, s.logged("memory_verify_integrity", err)
}

func (s *Server) handleTaskPreflight(ctx context.Context, _ *gosdkmcp.CallToolRequest, in TaskPreflightInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.TaskPreflight(ctx, in)
	return nil, resp, s.logged("task_preflight", err)
}

func (s *Server) handleTaskPostflight(ctx context.Context, _ *gosdkmcp.CallToolRequest, in TaskPostflightInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.TaskPostflight(ctx, in)
	return nil, resp, s.logged("task_postflight", err)
}

func (s *Server) handleMemoryGetLearningHistory(ctx context.Context, _ *gosdkmcp.CallToolRequest, in MemoryGetLearningHistoryInput) (*gosdkmcp.CallToolResult, *Response, error) {
	resp, err := s.shim.MemoryGetLearningHistory(ctx, in)
	return nil, resp, s.logged("memory_get_learning_history", err)
}

// logged records the full error detail server-side before returning it to
// the SDK, which is responsible for rendering the tool-facing error
// envelope.
func (s *Server) logged(tool string, err error) error {
	if err == nil {
		return nil
	}
	s.logger.Error("tool call failed", slog.String("tool", tool), slog.Any("detail", memerr.FormatForLog(err)))
	return err
}
