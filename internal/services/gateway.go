package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/repositories"
)

// PersistenceGateway saves and restores the instances of one survey variant.
// Reads degrade to "no saved state" on storage failures; writes report them.
type PersistenceGateway interface {
	// Save stores answers and metadata under instanceID, or under a newly
	// generated id when instanceID is empty, and marks it active.
	Save(ctx context.Context, instanceID string, answers models.Answers, metadata models.InstanceMetadata) (string, error)
	// Load returns the instance, the most recently modified one for an empty
	// id, or nil when nothing is saved.
	Load(ctx context.Context, instanceID string) *models.AssessmentInstance
	// Clear deletes the instance, or the active one for an empty id.
	Clear(ctx context.Context, instanceID string) error
	ListAll(ctx context.Context) []*models.AssessmentInstance
	// List is ListAll narrowed by filters.
	List(ctx context.Context, filters repositories.InstanceFilters) []*models.AssessmentInstance
	// ActiveID returns the instance an empty-id Clear would delete, or "".
	ActiveID(ctx context.Context) string
}

// GatewayFactory returns the gateway for a survey namespace.
type GatewayFactory func(surveyID string) PersistenceGateway

type RepositoryGateway struct {
	namespace string
	repo      repositories.InstanceRepository
	logger    *slog.Logger
	now       func() time.Time
}

func NewRepositoryGateway(namespace string, repo repositories.InstanceRepository, logger *slog.Logger) *RepositoryGateway {
	return &RepositoryGateway{
		namespace: namespace,
		repo:      repo,
		logger:    logger.With("namespace", namespace),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for ids and timestamps.
func (g *RepositoryGateway) WithClock(now func() time.Time) *RepositoryGateway {
	g.now = now
	return g
}

func (g *RepositoryGateway) Save(ctx context.Context, instanceID string, answers models.Answers, metadata models.InstanceMetadata) (string, error) {
	now := g.now()

	if instanceID == "" {
		existing, err := g.repo.ListIDs(ctx, g.namespace)
		if err != nil {
			return "", fmt.Errorf("list instance ids: %w", err)
		}
		instanceID = NextInstanceID(now, existing)
	}
	if metadata.CreatedAt.IsZero() {
		metadata.CreatedAt = now
	}
	metadata.UpdatedAt = now
	if answers == nil {
		answers = models.Answers{}
	}

	instance := &models.AssessmentInstance{
		ID:       instanceID,
		SurveyID: g.namespace,
		Answers:  answers,
		Metadata: metadata,
	}
	if err := g.repo.Upsert(ctx, g.namespace, instance); err != nil {
		return "", fmt.Errorf("save instance %s: %w", instanceID, err)
	}
	if err := g.repo.SetActive(ctx, g.namespace, instanceID); err != nil {
		return "", fmt.Errorf("mark instance %s active: %w", instanceID, err)
	}
	return instanceID, nil
}

func (g *RepositoryGateway) Load(ctx context.Context, instanceID string) *models.AssessmentInstance {
	var (
		instance *models.AssessmentInstance
		err      error
	)
	if instanceID == "" {
		instance, err = g.repo.GetLatest(ctx, g.namespace)
	} else {
		instance, err = g.repo.GetByID(ctx, g.namespace, instanceID)
	}
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			g.logger.Error("Failed to load instance, treating as no saved state",
				"instance_id", instanceID, "error", err)
		}
		return nil
	}
	return instance
}

func (g *RepositoryGateway) Clear(ctx context.Context, instanceID string) error {
	active, err := g.repo.GetActive(ctx, g.namespace)
	if err != nil && !repositories.IsNotFoundError(err) {
		return fmt.Errorf("read active instance: %w", err)
	}

	if instanceID == "" {
		if active == "" {
			return nil
		}
		instanceID = active
	}

	if err := g.repo.Delete(ctx, g.namespace, instanceID); err != nil {
		if repositories.IsNotFoundError(err) {
			return fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
		}
		return fmt.Errorf("delete instance %s: %w", instanceID, err)
	}
	if instanceID == active {
		if err := g.repo.ClearActive(ctx, g.namespace); err != nil {
			g.logger.Warn("Failed to clear active instance pointer", "instance_id", instanceID, "error", err)
		}
	}
	return nil
}

func (g *RepositoryGateway) ActiveID(ctx context.Context) string {
	active, err := g.repo.GetActive(ctx, g.namespace)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			g.logger.Error("Failed to read active instance", "error", err)
		}
		return ""
	}
	return active
}

func (g *RepositoryGateway) ListAll(ctx context.Context) []*models.AssessmentInstance {
	return g.List(ctx, repositories.InstanceFilters{})
}

func (g *RepositoryGateway) List(ctx context.Context, filters repositories.InstanceFilters) []*models.AssessmentInstance {
	instances, err := g.repo.List(ctx, g.namespace, filters)
	if err != nil {
		g.logger.Error("Failed to list instances", "error", err)
		return []*models.AssessmentInstance{}
	}
	return instances
}
