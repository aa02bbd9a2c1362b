package memerr

// Hint is the recovery guidance attached to an error code, surfaced in the
// MCP error envelope's hints[] array.
type Hint struct {
	Hint     string
	Actions  []string
	ToolTip  string
}

var codeHints = map[string]Hint{
	CodeEmbeddingGenerationFailed: {
		Hint:    "The embedding provider failed to generate a vector for this memory.",
		Actions: []string{"retry with backoff", "check provider credentials", "fall back to lexical-only indexing"},
	},
	CodeEmbeddingDimensionInvalid: {
		Hint:    "The embedding's dimension does not match the active provider profile.",
		Actions: []string{"re-embed with the active provider", "open the DB read-only if this is a legacy profile"},
	},
	CodeEmbeddingProviderTimeout: {
		Hint:    "The embedding provider did not respond within the configured timeout.",
		Actions: []string{"retry", "increase the provider timeout"},
	},
	CodeFileNotFound: {
		Hint:    "The memory file no longer exists on disk.",
		Actions: []string{"re-run memory_index_scan", "remove the stale catalog row"},
	},
	CodeFileAccessDenied: {
		Hint:    "The path is outside the configured allow-list or unreadable.",
		Actions: []string{"add the path to MEMORY_ALLOWED_PATHS", "check file permissions"},
	},
	CodeDBConnectionFailed: {
		Hint:    "Could not open or reconnect to the catalog database.",
		Actions: []string{"check MEMORY_DB_PATH", "confirm no other process holds the writer lock"},
	},
	CodeDBQueryFailed: {
		Hint:    "A catalog query failed, possibly due to contention.",
		Actions: []string{"retry", "check disk space"},
	},
	CodeDBSchemaCorrupt: {
		Hint:    "The schema_version table is missing or inconsistent.",
		Actions: []string{"restore from the most recent checkpoint", "do not retry automatically"},
	},
	CodeQueryEmpty: {
		Hint:    "Search queries must contain non-whitespace text.",
		Actions: []string{"provide a non-empty query"},
	},
	CodeQueryTooLong: {
		Hint:    "Search queries are capped at 10,000 characters.",
		Actions: []string{"shorten the query"},
	},
	CodeVectorUnavailable: {
		Hint:    "The vector index is unavailable; results are lexical-only.",
		Actions: []string{"check memory_health for vector index status"},
	},
	CodeAPIKeyInvalid: {
		Hint:    "The configured provider credential was rejected.",
		Actions: []string{"check VOYAGE_API_KEY / OPENAI_API_KEY", "do not retry automatically"},
	},
	CodeCheckpointCreateFailed: {
		Hint:    "Checkpoint creation failed, often due to a duplicate name.",
		Actions: []string{"choose a different checkpoint name", "check available disk space"},
	},
	CodeCheckpointRestoreFailed: {
		Hint:    "Checkpoint restore failed before any catalog state was mutated.",
		Actions: []string{"verify the checkpoint snapshot is not corrupted"},
	},
	CodeMemoryDuplicate: {
		Hint:    "A memory with this (spec_folder, file_path, anchor_id) already exists.",
		Actions: []string{"use memory_update instead of memory_save"},
	},
	CodeRateLimited: {
		Hint:    "The external provider is rate-limiting this process.",
		Actions: []string{"retry with backoff", "reduce BATCH_DELAY_MS concurrency"},
	},
	CodeServiceUnavailable: {
		Hint:    "An external collaborator (embedding/reranker provider) is unreachable.",
		Actions: []string{"retry later", "fall back to lexical-only / no-rerank mode"},
	},
}

func hintFor(code string) Hint {
	if h, ok := codeHints[code]; ok {
		return h
	}
	return Hint{Hint: "An unexpected error occurred.", Actions: []string{"check logs for detail"}}
}

// RecoveryHints returns the recorded {hint, actions} for a code, used by the
// MCP shim to populate the response envelope's hints[] field. Tool-specific
// overrides are applied by the caller (internal/mcpshim) on top of this.
func RecoveryHints(code string) Hint {
	return hintFor(code)
}
