package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// instanceRecord is the row layout. StartedAt/ModifiedAt are copied from the
// instance metadata instead of using gorm's auto timestamps.
type instanceRecord struct {
	Namespace  string         `gorm:"primaryKey;size:64"`
	ID         string         `gorm:"primaryKey;size:16"`
	SurveyID   string         `gorm:"size:64;not null"`
	State      string         `gorm:"size:20;index"`
	Answers    datatypes.JSON `gorm:"type:jsonb;not null"`
	Metadata   datatypes.JSON `gorm:"type:jsonb;not null"`
	StartedAt  time.Time      `gorm:"not null"`
	ModifiedAt time.Time      `gorm:"not null;index"`
}

func (instanceRecord) TableName() string { return "assessment_instances" }

type activeInstanceRecord struct {
	Namespace  string `gorm:"primaryKey;size:64"`
	InstanceID string `gorm:"size:16;not null"`
	ModifiedAt time.Time
}

func (activeInstanceRecord) TableName() string { return "active_assessment_instances" }

// Migrate creates or updates the instance tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&instanceRecord{}, &activeInstanceRecord{})
}

type InstancePostgreSQL struct {
	db *gorm.DB
}

func NewInstancePostgreSQL(db *gorm.DB) repositories.InstanceRepository {
	return &InstancePostgreSQL{db: db}
}

func (r *InstancePostgreSQL) Upsert(ctx context.Context, namespace string, instance *models.AssessmentInstance) error {
	record, err := toRecord(namespace, instance)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"survey_id", "state", "answers", "metadata", "modified_at"}),
		}).
		Create(record).Error
}

func (r *InstancePostgreSQL) GetByID(ctx context.Context, namespace, id string) (*models.AssessmentInstance, error) {
	var record instanceRecord
	if err := r.db.WithContext(ctx).
		Where("namespace = ? AND id = ?", namespace, id).
		First(&record).Error; err != nil {
		return nil, translate(err)
	}
	return fromRecord(&record)
}

func (r *InstancePostgreSQL) GetLatest(ctx context.Context, namespace string) (*models.AssessmentInstance, error) {
	var record instanceRecord
	if err := r.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Order("modified_at DESC").
		First(&record).Error; err != nil {
		return nil, translate(err)
	}
	return fromRecord(&record)
}

func (r *InstancePostgreSQL) List(ctx context.Context, namespace string, filters repositories.InstanceFilters) ([]*models.AssessmentInstance, error) {
	query := r.db.WithContext(ctx).Model(&instanceRecord{}).Where("namespace = ?", namespace)
	if filters.UpdatedAfter != nil {
		query = query.Where("modified_at > ?", *filters.UpdatedAfter)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var records []instanceRecord
	if err := query.Order("modified_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	instances := make([]*models.AssessmentInstance, 0, len(records))
	for i := range records {
		instance, err := fromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

func (r *InstancePostgreSQL) ListIDs(ctx context.Context, namespace string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&instanceRecord{}).
		Where("namespace = ?", namespace).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *InstancePostgreSQL) Delete(ctx context.Context, namespace, id string) error {
	result := r.db.WithContext(ctx).
		Where("namespace = ? AND id = ?", namespace, id).
		Delete(&instanceRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *InstancePostgreSQL) SetActive(ctx context.Context, namespace, id string) error {
	record := activeInstanceRecord{Namespace: namespace, InstanceID: id, ModifiedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}},
			DoUpdates: clause.AssignmentColumns([]string{"instance_id", "modified_at"}),
		}).
		Create(&record).Error
}

func (r *InstancePostgreSQL) GetActive(ctx context.Context, namespace string) (string, error) {
	var record activeInstanceRecord
	if err := r.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		First(&record).Error; err != nil {
		return "", translate(err)
	}
	return record.InstanceID, nil
}

func (r *InstancePostgreSQL) ClearActive(ctx context.Context, namespace string) error {
	return r.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Delete(&activeInstanceRecord{}).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}

func toRecord(namespace string, instance *models.AssessmentInstance) (*instanceRecord, error) {
	answers, err := json.Marshal(instance.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	metadata, err := json.Marshal(instance.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return &instanceRecord{
		Namespace:  namespace,
		ID:         instance.ID,
		SurveyID:   instance.SurveyID,
		State:      string(instance.Metadata.State),
		Answers:    datatypes.JSON(answers),
		Metadata:   datatypes.JSON(metadata),
		StartedAt:  instance.Metadata.CreatedAt,
		ModifiedAt: instance.Metadata.UpdatedAt,
	}, nil
}

func fromRecord(record *instanceRecord) (*models.AssessmentInstance, error) {
	instance := &models.AssessmentInstance{ID: record.ID, SurveyID: record.SurveyID}
	if err := json.Unmarshal(record.Answers, &instance.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of %s: %w", record.ID, err)
	}
	if err := json.Unmarshal(record.Metadata, &instance.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata of %s: %w", record.ID, err)
	}
	if instance.Answers == nil {
		instance.Answers = models.Answers{}
	}
	return instance, nil
}
