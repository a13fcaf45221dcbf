package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/biosecurity-service/internal/catalog"
	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInstanceRepository struct {
	mock.Mock
}

func (m *MockInstanceRepository) Upsert(ctx context.Context, namespace string, instance *models.AssessmentInstance) error {
	args := m.Called(ctx, namespace, instance)
	return args.Error(0)
}

func (m *MockInstanceRepository) GetByID(ctx context.Context, namespace, id string) (*models.AssessmentInstance, error) {
	args := m.Called(ctx, namespace, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentInstance), args.Error(1)
}

func (m *MockInstanceRepository) GetLatest(ctx context.Context, namespace string) (*models.AssessmentInstance, error) {
	args := m.Called(ctx, namespace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentInstance), args.Error(1)
}

func (m *MockInstanceRepository) List(ctx context.Context, namespace string, filters repositories.InstanceFilters) ([]*models.AssessmentInstance, error) {
	args := m.Called(ctx, namespace, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AssessmentInstance), args.Error(1)
}

func (m *MockInstanceRepository) ListIDs(ctx context.Context, namespace string) ([]string, error) {
	args := m.Called(ctx, namespace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockInstanceRepository) Delete(ctx context.Context, namespace, id string) error {
	args := m.Called(ctx, namespace, id)
	return args.Error(0)
}

func (m *MockInstanceRepository) SetActive(ctx context.Context, namespace, id string) error {
	args := m.Called(ctx, namespace, id)
	return args.Error(0)
}

func (m *MockInstanceRepository) GetActive(ctx context.Context, namespace string) (string, error) {
	args := m.Called(ctx, namespace)
	return args.String(0), args.Error(1)
}

func (m *MockInstanceRepository) ClearActive(ctx context.Context, namespace string) error {
	args := m.Called(ctx, namespace)
	return args.Error(0)
}

var errStorageDown = errors.New("connection refused")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRepositoryGateway_SaveGeneratesID(t *testing.T) {
	ctx := context.Background()
	repo := new(MockInstanceRepository)
	now := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	gw := NewRepositoryGateway("dairy", repo, discardLogger()).WithClock(fixedClock(now))

	repo.On("ListIDs", ctx, "dairy").Return([]string{"0201250001", "0201250004", "3112240009"}, nil)
	repo.On("Upsert", ctx, "dairy", mock.MatchedBy(func(i *models.AssessmentInstance) bool {
		return i.ID == "0201250005" &&
			i.SurveyID == "dairy" &&
			i.Answers != nil &&
			i.Metadata.CreatedAt.Equal(now) &&
			i.Metadata.UpdatedAt.Equal(now)
	})).Return(nil)
	repo.On("SetActive", ctx, "dairy", "0201250005").Return(nil)

	id, err := gw.Save(ctx, "", nil, models.InstanceMetadata{State: models.StateNotStarted})

	require.NoError(t, err)
	assert.Equal(t, "0201250005", id)
	repo.AssertExpectations(t)
}

func TestRepositoryGateway_SaveKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := new(MockInstanceRepository)
	created := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)
	gw := NewRepositoryGateway("dairy", repo, discardLogger()).WithClock(fixedClock(now))

	repo.On("Upsert", ctx, "dairy", mock.MatchedBy(func(i *models.AssessmentInstance) bool {
		return i.Metadata.CreatedAt.Equal(created) && i.Metadata.UpdatedAt.Equal(now)
	})).Return(nil)
	repo.On("SetActive", ctx, "dairy", "0112240001").Return(nil)

	id, err := gw.Save(ctx, "0112240001", models.Answers{}, models.InstanceMetadata{CreatedAt: created})

	require.NoError(t, err)
	assert.Equal(t, "0112240001", id)
	repo.AssertNotCalled(t, "ListIDs", mock.Anything, mock.Anything)
}

func TestRepositoryGateway_SaveReportsFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert", func(t *testing.T) {
		repo := new(MockInstanceRepository)
		repo.On("Upsert", ctx, "dairy", mock.Anything).Return(errStorageDown)
		gw := NewRepositoryGateway("dairy", repo, discardLogger())

		_, err := gw.Save(ctx, "0101250001", nil, models.InstanceMetadata{})
		assert.ErrorIs(t, err, errStorageDown)
		repo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("id listing", func(t *testing.T) {
		repo := new(MockInstanceRepository)
		repo.On("ListIDs", ctx, "dairy").Return(nil, errStorageDown)
		gw := NewRepositoryGateway("dairy", repo, discardLogger())

		_, err := gw.Save(ctx, "", nil, models.InstanceMetadata{})
		assert.ErrorIs(t, err, errStorageDown)
	})
}

func TestRepositoryGateway_ReadsDegrade(t *testing.T) {
	ctx := context.Background()
	repo := new(MockInstanceRepository)
	gw := NewRepositoryGateway("dairy", repo, discardLogger())

	repo.On("GetLatest", ctx, "dairy").Return(nil, errStorageDown)
	repo.On("GetByID", ctx, "dairy", "0101250001").Return(nil, repositories.ErrNotFound)
	repo.On("List", ctx, "dairy", repositories.InstanceFilters{}).Return(nil, errStorageDown)

	assert.Nil(t, gw.Load(ctx, ""))
	assert.Nil(t, gw.Load(ctx, "0101250001"))

	all := gw.ListAll(ctx)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestRepositoryGateway_ActiveID(t *testing.T) {
	ctx := context.Background()

	repo := new(MockInstanceRepository)
	repo.On("GetActive", ctx, "dairy").Return("0101250002", nil).Once()
	repo.On("GetActive", ctx, "dairy").Return("", errStorageDown).Once()
	gw := NewRepositoryGateway("dairy", repo, discardLogger())

	assert.Equal(t, "0101250002", gw.ActiveID(ctx))
	assert.Empty(t, gw.ActiveID(ctx), "storage failures read as nothing active")
}

func TestRepositoryGateway_Clear(t *testing.T) {
	ctx := context.Background()

	t.Run("active instance", func(t *testing.T) {
		repo := new(MockInstanceRepository)
		repo.On("GetActive", ctx, "dairy").Return("0101250002", nil)
		repo.On("Delete", ctx, "dairy", "0101250002").Return(nil)
		repo.On("ClearActive", ctx, "dairy").Return(nil)
		gw := NewRepositoryGateway("dairy", repo, discardLogger())

		require.NoError(t, gw.Clear(ctx, ""))
		repo.AssertExpectations(t)
	})

	t.Run("inactive instance keeps pointer", func(t *testing.T) {
		repo := new(MockInstanceRepository)
		repo.On("GetActive", ctx, "dairy").Return("0101250002", nil)
		repo.On("Delete", ctx, "dairy", "0101250001").Return(nil)
		gw := NewRepositoryGateway("dairy", repo, discardLogger())

		require.NoError(t, gw.Clear(ctx, "0101250001"))
		repo.AssertNotCalled(t, "ClearActive", mock.Anything, mock.Anything)
	})

	t.Run("nothing active", func(t *testing.T) {
		repo := new(MockInstanceRepository)
		repo.On("GetActive", ctx, "dairy").Return("", repositories.ErrNotFound)
		gw := NewRepositoryGateway("dairy", repo, discardLogger())

		require.NoError(t, gw.Clear(ctx, ""))
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown instance", func(t *testing.T) {
		repo := new(MockInstanceRepository)
		repo.On("GetActive", ctx, "dairy").Return("", repositories.ErrNotFound)
		repo.On("Delete", ctx, "dairy", "0101250009").Return(repositories.ErrNotFound)
		gw := NewRepositoryGateway("dairy", repo, discardLogger())

		err := gw.Clear(ctx, "0101250009")
		assert.ErrorIs(t, err, ErrInstanceNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := new(MockInstanceRepository)
		repo.On("GetActive", ctx, "dairy").Return("", errStorageDown)
		gw := NewRepositoryGateway("dairy", repo, discardLogger())

		err := gw.Clear(ctx, "")
		assert.ErrorIs(t, err, errStorageDown)
	})
}

func TestAssessmentService_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockInstanceRepository)
	stored := &models.AssessmentInstance{
		ID:       "0101250001",
		SurveyID: "pig",
		Answers:  models.Answers{},
		Metadata: models.InstanceMetadata{State: models.StateNotStarted},
	}
	repo.On("GetByID", mock.Anything, "pig", "0101250001").Return(stored, nil)
	repo.On("Upsert", mock.Anything, "pig", mock.Anything).Return(errStorageDown)

	service, err := NewAssessmentService(AssessmentServiceConfig{
		Catalog:          catalog.New(pigSurvey()),
		CombiningWeights: pigWeights,
		Gateways: func(surveyID string) PersistenceGateway {
			return NewRepositoryGateway(surveyID, repo, discardLogger())
		},
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	_, err = service.AnswerQuestion(ctx, "pig", "0101250001", "truck_wash", &AnswerRequest{Value: models.TextAnswer("yes")})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.False(t, IsNotFound(err))
}
