package workflow

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// Start moves a pending stage to in_progress. A blocked stage is rejected
// with *domain.BlockedError before its status is considered.
func Start(stage *domain.Stage, block BlockState, now time.Time) error {
	if block.Blocked {
		return &domain.BlockedError{StageID: stage.ID, Blockers: block.Blockers}
	}
	if stage.Status != domain.StageStatusPending {
		return transitionError(stage, domain.StageStatusInProgress, "only pending stages can be started")
	}

	at := now.UTC()
	stage.Status = domain.StageStatusInProgress
	stage.ActualStartDate = &at
	return nil
}

// Complete moves an in_progress stage to completed
func Complete(stage *domain.Stage, now time.Time) error {
	if stage.Status != domain.StageStatusInProgress {
		return transitionError(stage, domain.StageStatusCompleted, "only stages in progress can be completed")
	}

	at := now.UTC()
	stage.Status = domain.StageStatusCompleted
	stage.ActualEndDate = &at
	return nil
}

// Reopen sends a completed stage back to in_progress, clears its end date and
// appends one entry to the reopen history
func Reopen(stage *domain.Stage, actor, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.NewValidationError("reason", "A reason is required to reopen a stage")
	}
	if strings.TrimSpace(actor) == "" {
		return domain.NewValidationError("actor", "An actor is required to reopen a stage")
	}
	if stage.Status != domain.StageStatusCompleted {
		return transitionError(stage, domain.StageStatusInProgress, "only completed stages can be reopened")
	}

	stage.Status = domain.StageStatusInProgress
	stage.ActualEndDate = nil
	stage.ReopenHistory = append(stage.ReopenHistory, domain.ReopenEntry{
		ReopenedAt: now.UTC(),
		ReopenedBy: actor,
		Reason:     reason,
	})
	return nil
}

func transitionError(stage *domain.Stage, to domain.StageStatus, reason string) error {
	return &domain.TransitionError{
		Entity: "stage " + stage.ID.String(),
		From:   string(stage.Status),
		To:     string(to),
		Reason: reason,
	}
}

// StageLocks serializes lifecycle transitions per stage within one process.
// Entries are dropped once no goroutine holds or waits for them.
type StageLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*stageLock
}

type stageLock struct {
	mu   sync.Mutex
	refs int
}

// NewStageLocks creates an empty lock table
func NewStageLocks() *StageLocks {
	return &StageLocks{locks: make(map[uuid.UUID]*stageLock)}
}

// Lock blocks until the stage's lock is held and returns its release func
func (l *StageLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &stageLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
