package stagedata

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// Approval ledger actions
const (
	ActionDocumentApproved  = "document_approved"
	ActionDocumentRejected  = "document_rejected"
	ActionRevisionRequested = "revision_requested"
	ActionRevisionsResolved = "revisions_resolved"
	ActionClientComment     = "client_comment"
)

// DecideDocument records an approve/reject decision on one document and
// appends it to the approval history
func DecideDocument(d *ApprovalData, documentID string, status DocumentStatus, actor, comment string, now time.Time) error {
	var action string
	switch status {
	case DocumentStatusApproved:
		action = ActionDocumentApproved
	case DocumentStatusRejected:
		action = ActionDocumentRejected
	default:
		return domain.NewValidationError("status", "Must be one of: approved rejected")
	}

	idx := -1
	for i := range d.Documents {
		if d.Documents[i].ID == documentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("approval document %s: %w", documentID, domain.ErrNotFound)
	}

	at := now.UTC()
	doc := &d.Documents[idx]
	doc.Status = status
	doc.DecidedBy = actor
	doc.DecidedAt = &at
	doc.Comment = comment

	d.ApprovalHistory = append(d.ApprovalHistory, ApprovalEvent{
		Action:     action,
		DocumentID: documentID,
		Actor:      actor,
		Comment:    comment,
		At:         at,
	})
	Recompute(d)
	return nil
}

// RequestRevision opens a revision request, which holds the approval in
// requires_revision until resolved
func RequestRevision(d *ApprovalData, reason, actor string, now time.Time) (RevisionRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return RevisionRequest{}, domain.NewValidationError("reason", "This field is required")
	}

	req := RevisionRequest{
		ID:          uuid.NewString(),
		Reason:      reason,
		RequestedBy: actor,
		RequestedAt: now.UTC(),
	}
	d.RevisionRequests = append(d.RevisionRequests, req)
	d.ApprovalHistory = append(d.ApprovalHistory, ApprovalEvent{
		Action:  ActionRevisionRequested,
		Actor:   actor,
		Comment: reason,
		At:      req.RequestedAt,
	})
	Recompute(d)
	return req, nil
}

// ResolveRevisions marks every open revision request resolved. Returns the
// number of requests closed.
func ResolveRevisions(d *ApprovalData, actor string, now time.Time) int {
	resolved := 0
	for i := range d.RevisionRequests {
		if !d.RevisionRequests[i].Resolved {
			d.RevisionRequests[i].Resolved = true
			resolved++
		}
	}
	if resolved > 0 {
		d.ApprovalHistory = append(d.ApprovalHistory, ApprovalEvent{
			Action:  ActionRevisionsResolved,
			Actor:   actor,
			Comment: fmt.Sprintf("%d revision request(s) resolved", resolved),
			At:      now.UTC(),
		})
	}
	Recompute(d)
	return resolved
}

// AddClientComment appends a comment from the client to the approval stage
func AddClientComment(d *ApprovalData, author, text string, now time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.NewValidationError("text", "This field is required")
	}
	d.ClientComments = append(d.ClientComments, ClientComment{
		Author:    author,
		Text:      text,
		CreatedAt: now.UTC(),
	})
	d.ApprovalHistory = append(d.ApprovalHistory, ApprovalEvent{
		Action:  ActionClientComment,
		Actor:   author,
		Comment: text,
		At:      now.UTC(),
	})
	Recompute(d)
	return nil
}

// CompleteCutting marks one cutting task done
func CompleteCutting(d *ProductionData, taskID string, now time.Time) error {
	for i := range d.CuttingSpecification {
		task := &d.CuttingSpecification[i]
		if task.ID != taskID {
			continue
		}
		if task.Completed {
			return &domain.TransitionError{
				Entity: "cutting task " + taskID,
				From:   "completed",
				To:     "completed",
				Reason: "task is already completed",
			}
		}
		at := now.UTC()
		task.Completed = true
		task.CompletedAt = &at
		Recompute(d)
		return nil
	}
	return fmt.Errorf("cutting task %s: %w", taskID, domain.ErrNotFound)
}
