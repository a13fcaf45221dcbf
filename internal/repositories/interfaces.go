package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned by every backend when an instance does not exist.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err means the record is absent, for both
// our sentinel and gorm's.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

type InstanceFilters struct {
	UpdatedAfter *time.Time `json:"updated_after"`
	Limit        int        `json:"limit"`
	Offset       int        `json:"offset"`
}

// InstanceRepository stores assessment instances. Every call is scoped to a
// namespace (one per survey variant) so ids never collide across variants.
type InstanceRepository interface {
	// Upsert inserts or fully replaces the instance with the same id.
	Upsert(ctx context.Context, namespace string, instance *models.AssessmentInstance) error
	GetByID(ctx context.Context, namespace, id string) (*models.AssessmentInstance, error)
	// GetLatest returns the most recently modified instance.
	GetLatest(ctx context.Context, namespace string) (*models.AssessmentInstance, error)
	// List returns instances ordered by modification time, newest first.
	List(ctx context.Context, namespace string, filters InstanceFilters) ([]*models.AssessmentInstance, error)
	ListIDs(ctx context.Context, namespace string) ([]string, error)
	Delete(ctx context.Context, namespace, id string) error

	// Active instance pointer
	SetActive(ctx context.Context, namespace, id string) error
	GetActive(ctx context.Context, namespace string) (string, error)
	ClearActive(ctx context.Context, namespace string) error
}
