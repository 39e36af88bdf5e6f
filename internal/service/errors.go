package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// Common service errors
var (
	// ErrStageNotFound is returned when a stage is not found
	ErrStageNotFound = fmt.Errorf("stage: %w", domain.ErrNotFound)

	// ErrProjectNotFound is returned when a project is not found
	ErrProjectNotFound = fmt.Errorf("project: %w", domain.ErrNotFound)

	// ErrComparisonNotFound is returned when a comparison or one of its items is not found
	ErrComparisonNotFound = fmt.Errorf("comparison: %w", domain.ErrNotFound)

	// ErrSourceFileNotFound is returned when a comparison has no archived upload
	ErrSourceFileNotFound = fmt.Errorf("source file: %w", domain.ErrNotFound)

	// ErrNotificationNotFound is returned when a notification is not found or belongs to someone else
	ErrNotificationNotFound = fmt.Errorf("notification: %w", domain.ErrNotFound)
)

// notFound maps gorm.ErrRecordNotFound to the given not-found error and
// wraps anything else with what was being done
func notFound(err error, nf error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// requireActor rejects mutating calls that carry no actor
func requireActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return domain.NewValidationError("actor", "X-Actor-ID header is required")
	}
	return nil
}
