package mcpshim

import "context"

// Session-learning metrics (task_preflight/task_postflight/
// memory_get_learning_history) are owned by a separate session-learning
// collaborator this repository does not implement. They still belong on
// the tool surface, so these three stay registered as thin delegation
// seams: they never touch the catalog or ranking pipeline, they only
// acknowledge that the operation is handled elsewhere.

// TaskPreflightInput is task_preflight's input; fields are opaque task
// metadata the collaborator defines.
type TaskPreflightInput struct {
	TaskID string         `json:"taskId,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// TaskPreflight acknowledges the call without performing any learning-index
// computation.
func (s *Shim) TaskPreflight(_ context.Context, in TaskPreflightInput) (*Response, error) {
	return ok("task_preflight", "task_preflight is delegated to the session-learning collaborator; no local state was read",
		map[string]any{"taskId": in.TaskID, "delegated": true}), nil
}

// TaskPostflightInput is task_postflight's input.
type TaskPostflightInput struct {
	TaskID string         `json:"taskId,omitempty"`
	Result map[string]any `json:"result,omitempty"`
}

// TaskPostflight acknowledges the call without recording any learning index.
func (s *Shim) TaskPostflight(_ context.Context, in TaskPostflightInput) (*Response, error) {
	return ok("task_postflight", "task_postflight is delegated to the session-learning collaborator; no local state was written",
		map[string]any{"taskId": in.TaskID, "delegated": true}), nil
}

// MemoryGetLearningHistoryInput is memory_get_learning_history's input.
type MemoryGetLearningHistoryInput struct {
	TaskID string `json:"taskId,omitempty"`
}

// MemoryGetLearningHistory reports that learning-history indices live
// outside this repository's core.
func (s *Shim) MemoryGetLearningHistory(_ context.Context, in MemoryGetLearningHistoryInput) (*Response, error) {
	return ok("memory_get_learning_history", "learning history is owned by the session-learning collaborator, not the memory catalog",
		map[string]any{"taskId": in.TaskID, "history": []any{}}), nil
}
