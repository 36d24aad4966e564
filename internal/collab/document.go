package collab

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"collaborative-editor/internal/domain"
)

// DocumentSynchronizer owns one room's document and applies operations to it
// single-writer style. It is not internally locked: the owning room's guard
// serializes all access.
type DocumentSynchronizer struct {
	state    domain.DocumentState
	strategy SyncStrategy
	log      []domain.OperationLogEntry
	logCap   int
}

// NewDocumentSynchronizer creates an empty document at version 0.
func NewDocumentSynchronizer(language string, strategy SyncStrategy, logCap int) *DocumentSynchronizer {
	return &DocumentSynchronizer{
		state: domain.DocumentState{
			ID:             uuid.NewString(),
			Content:        "",
			Version:        0,
			Language:       language,
			LastModifiedAt: time.Now().UTC(),
		},
		strategy: strategy,
		log:      make([]domain.OperationLogEntry, 0, 64),
		logCap:   logCap,
	}
}

// Apply validates and applies one operation, bumping the version by exactly 1
// and appending to the operation log. A failed apply leaves the document
// untouched: no version bump, no log entry.
func (d *DocumentSynchronizer) Apply(op domain.DocumentOperation) (domain.DocumentState, domain.OperationLogEntry, error) {
	content, err := d.spliced(op)
	if err != nil {
		return domain.DocumentState{}, domain.OperationLogEntry{}, err
	}

	d.state.Content = content
	d.state.Version++
	d.state.LastModifiedBy = op.UserID
	d.state.LastModifiedAt = time.Now().UTC()

	entry := domain.OperationLogEntry{
		Operation:        op,
		ResultingVersion: d.state.Version,
		AppliedAt:        d.state.LastModifiedAt,
	}
	d.log = append(d.log, entry)
	if len(d.log) > d.logCap {
		// Evict oldest. Copy so the backing array does not pin evicted entries.
		d.log = append(d.log[:0:0], d.log[len(d.log)-d.logCap:]...)
	}
	return d.state, entry, nil
}

// spliced computes the post-operation content without mutating state.
//
// Pessimistic and CRDT strategies are reserved extension points; until they
// diverge, every strategy applies optimistically.
func (d *DocumentSynchronizer) spliced(op domain.DocumentOperation) (string, error) {
	content := d.state.Content

	switch op.Type {
	case domain.OpInsert:
		if op.Position < 0 || op.Position > len(content) {
			return "", fmt.Errorf("%w: insert position %d outside [0, %d]", ErrInvalidOperation, op.Position, len(content))
		}
		if !runeBoundary(content, op.Position) {
			return "", fmt.Errorf("%w: insert position %d splits a UTF-8 sequence", ErrInvalidOperation, op.Position)
		}
		return content[:op.Position] + op.Text + content[op.Position:], nil

	case domain.OpDelete:
		if err := checkRange(content, op.Start, op.End); err != nil {
			return "", err
		}
		return content[:op.Start] + content[op.End:], nil

	case domain.OpReplace:
		if err := checkRange(content, op.Start, op.End); err != nil {
			return "", err
		}
		return content[:op.Start] + op.Text + content[op.End:], nil

	case domain.OpFormat:
		// Formatting attaches attributes via the operation log; the text is
		// untouched, but the range must still be valid.
		if err := checkRange(content, op.Start, op.End); err != nil {
			return "", err
		}
		return content, nil

	default:
		return "", fmt.Errorf("%w: unknown operation type %q", ErrInvalidOperation, op.Type)
	}
}

func checkRange(content string, start, end int) error {
	if start < 0 || end < start || end > len(content) {
		return fmt.Errorf("%w: [%d, %d) outside content of length %d", ErrInvalidOperation, start, end, len(content))
	}
	if !runeBoundary(content, start) || !runeBoundary(content, end) {
		return fmt.Errorf("%w: [%d, %d) splits a UTF-8 sequence", ErrInvalidOperation, start, end)
	}
	return nil
}

// runeBoundary reports whether i is a valid splice point in s. Byte offsets
// inside a multi-byte rune are rejected so content stays valid UTF-8.
func runeBoundary(s string, i int) bool {
	return i == 0 || i == len(s) || utf8.RuneStart(s[i])
}

// State returns a snapshot of the document.
func (d *DocumentSynchronizer) State() domain.DocumentState { return d.state }

// Log returns a copy of the retained operation log, oldest first.
func (d *DocumentSynchronizer) Log() []domain.OperationLogEntry {
	out := make([]domain.OperationLogEntry, len(d.log))
	copy(out, d.log)
	return out
}
