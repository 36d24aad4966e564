package domain

import "time"

// OperationType is the closed set of document mutations. Operations are
// dispatched through a switch so the log stays serializable and replayable;
// there is no callback registration.
type OperationType string

const (
	OpInsert  OperationType = "insert"
	OpDelete  OperationType = "delete"
	OpReplace OperationType = "replace"
	OpFormat  OperationType = "format"
)

// DocumentOperation is one atomic edit request against a room's document.
// Offsets are byte positions into the current content.
//
//   - insert: splice Text at Position
//   - delete: remove [Start, End)
//   - replace: substitute [Start, End) with Text
//   - format: attach Attributes to [Start, End) without changing the text
type DocumentOperation struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Timestamp     time.Time         `json:"timestamp"`
	TargetVersion uint64            `json:"target_version"`
	Type          OperationType     `json:"type"`
	Position      int               `json:"position,omitempty"`
	Start         int               `json:"start,omitempty"`
	End           int               `json:"end,omitempty"`
	Text          string            `json:"text,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// OperationLogEntry is the audit/replay record appended on every successful
// apply. The log is capacity-bounded; oldest entries are evicted first.
type OperationLogEntry struct {
	Operation        DocumentOperation `json:"operation"`
	ResultingVersion uint64            `json:"resulting_version"`
	AppliedAt        time.Time         `json:"applied_at"`
}
