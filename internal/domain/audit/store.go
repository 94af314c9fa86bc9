package audit

import (
	"context"
	"errors"
	"time"
)

// ErrDateRangeExceeded is returned when a query date range exceeds the
// maximum allowed window.
var ErrDateRangeExceeded = errors.New("date range exceeds maximum of 7 days")

// AuditStore persists verdict records. Interface owned by domain per
// hexagonal architecture. Implementation handles rotation and retention.
type AuditStore interface {
	// Append stores verdict records. Must be non-blocking from the caller's
	// perspective — the rule engine's hot path never waits on disk I/O.
	Append(ctx context.Context, records ...VerdictRecord) error

	// Flush forces pending records to storage. Called during shutdown.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// AuditFilter specifies query parameters for the admin API's audit log query
// endpoint (spec §6).
type AuditFilter struct {
	// StartTime is the beginning of the time range (required).
	StartTime time.Time
	// EndTime is the end of the time range (required).
	EndTime time.Time
	// ToolName filters by tool name (optional).
	ToolName string
	// Decision filters by decision: "forward", "blocked", "rewritten" (optional).
	Decision string
	// Risk filters by risk level: "info", "warning", "critical" (optional).
	Risk string
	// Limit is the maximum number of records to return (default 100, max 1000).
	Limit int
	// Cursor is the pagination cursor for fetching the next page (optional).
	Cursor string
}

// ToolStats contains per-tool audit statistics.
type ToolStats struct {
	// Calls is the total number of evaluated invocations of this tool.
	Calls int64
	// Forwarded is the number of invocations that were forwarded unmodified.
	Forwarded int64
	// Blocked is the number of invocations that were blocked or rewritten.
	Blocked int64
}

// AuditStats contains aggregated audit statistics for a time period, backing
// the admin API's `/api/stats` endpoint.
type AuditStats struct {
	// TotalCalls is the total number of verdict records in range.
	TotalCalls int64
	// ByTool maps tool names to per-tool statistics.
	ByTool map[string]ToolStats
	// ByRisk maps risk levels to counts.
	ByRisk map[string]int64
	// ByDecision maps decision values to counts.
	ByDecision map[string]int64
}

// AuditQueryStore provides read access to audit logs for admin queries. This
// interface is separate from AuditStore, which handles writes.
type AuditQueryStore interface {
	// Query retrieves verdict records matching the filter.
	// Returns records, next cursor (empty if no more pages), and error.
	// Returns ErrDateRangeExceeded if EndTime - StartTime > 7 days.
	Query(ctx context.Context, filter AuditFilter) ([]VerdictRecord, string, error)

	// QueryStats returns aggregated statistics for the given time range.
	QueryStats(ctx context.Context, start, end time.Time) (*AuditStats, error)
}
