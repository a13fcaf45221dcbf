package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/biosecurity-service/internal/cache"
	"github.com/SAP-F-2025/biosecurity-service/internal/catalog"
	"github.com/SAP-F-2025/biosecurity-service/internal/events"
	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/repositories"
	"github.com/SAP-F-2025/biosecurity-service/internal/scoring"
	"github.com/SAP-F-2025/biosecurity-service/internal/validator"
)

// AssessmentService is the consumer-facing API over the scoring engine and
// the per-survey persistence gateways.
type AssessmentService interface {
	ListSurveys(ctx context.Context) []SurveySummary
	GetSurvey(ctx context.Context, surveyID string) (*models.Survey, error)

	Start(ctx context.Context, surveyID string, req *StartInstanceRequest) (*InstanceResponse, error)
	// Get returns the instance, or the most recently modified one for an empty id.
	Get(ctx context.Context, surveyID, instanceID string) (*InstanceResponse, error)
	// List returns instances newest first; a nil request lists them all.
	List(ctx context.Context, surveyID string, req *ListInstancesRequest) ([]*InstanceSummary, error)
	AnswerQuestion(ctx context.Context, surveyID, instanceID, questionID string, req *AnswerRequest) (*InstanceResponse, error)
	Navigate(ctx context.Context, surveyID, instanceID string, req *NavigateRequest) (*InstanceResponse, error)
	Evaluate(ctx context.Context, surveyID, instanceID string) (*scoring.Evaluation, error)
	// Discard deletes the instance, or the active one for an empty id.
	Discard(ctx context.Context, surveyID, instanceID string) error
}

type AssessmentServiceConfig struct {
	Catalog          *catalog.Catalog
	CombiningWeights map[string]map[string]float64
	Language         string
	Gateways         GatewayFactory
	Cache            cache.CacheService
	CacheTTL         time.Duration
	Publisher        events.EventPublisher
	Validator        *validator.Validator
	Logger           *slog.Logger
}

type surveyRuntime struct {
	engine  *scoring.Engine
	gateway PersistenceGateway
	scope   string
}

type assessmentService struct {
	catalog   *catalog.Catalog
	surveys   map[string]*surveyRuntime
	cache     cache.CacheService
	cacheTTL  time.Duration
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *ServiceLogger
	now       func() time.Time
}

// NewAssessmentService builds one engine per catalog survey. It fails when
// any survey lacks a combining weight.
func NewAssessmentService(cfg AssessmentServiceConfig) (AssessmentService, error) {
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNoopCache()
	}
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}

	s := &assessmentService{
		catalog:   cfg.Catalog,
		surveys:   make(map[string]*surveyRuntime, cfg.Catalog.Len()),
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		publisher: cfg.Publisher,
		validator: cfg.Validator,
		logger: NewServiceLogger(cfg.Logger, LogConfig{
			Service:   "biosecurity",
			Component: "assessment",
		}),
		now: func() time.Time { return time.Now().UTC() },
	}

	var errs []error
	for _, survey := range cfg.Catalog.List() {
		weights := cfg.CombiningWeights[survey.ID]
		engine, err := scoring.New(survey,
			scoring.WithCombiningWeights(weights),
			scoring.WithLanguage(cfg.Language))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.surveys[survey.ID] = &surveyRuntime{
			engine:  engine,
			gateway: cfg.Gateways(survey.ID),
			scope:   cache.Scope(survey.ID, survey.Version, weights),
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// PurgeEvaluationCache drops every cached evaluation of the catalog's surveys
// under their current weights.
func PurgeEvaluationCache(ctx context.Context, c cache.CacheService, surveys *catalog.Catalog, weights map[string]map[string]float64) error {
	var errs []error
	for _, survey := range surveys.List() {
		scope := cache.Scope(survey.ID, survey.Version, weights[survey.ID])
		if err := c.DeletePattern(ctx, cache.ScopePattern(scope)); err != nil {
			errs = append(errs, fmt.Errorf("purge cached evaluations of %s: %w", survey.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *assessmentService) runtime(surveyID string) (*surveyRuntime, error) {
	rt, ok := s.surveys[surveyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSurveyNotFound, surveyID)
	}
	return rt, nil
}

// ===== SURVEYS =====

func (s *assessmentService) ListSurveys(ctx context.Context) []SurveySummary {
	surveys := s.catalog.List()
	out := make([]SurveySummary, 0, len(surveys))
	for _, survey := range surveys {
		diseases := make([]string, 0, len(survey.Diseases))
		for _, d := range survey.Diseases {
			diseases = append(diseases, d.ID)
		}
		out = append(out, SurveySummary{
			ID:            survey.ID,
			Name:          survey.Name.Get(models.DefaultLanguage),
			Version:       survey.Version,
			CategoryCount: len(survey.Categories),
			QuestionCount: survey.QuestionCount(),
			Diseases:      diseases,
		})
	}
	return out
}

func (s *assessmentService) GetSurvey(ctx context.Context, surveyID string) (*models.Survey, error) {
	rt, err := s.runtime(surveyID)
	if err != nil {
		return nil, err
	}
	return rt.engine.Survey(), nil
}

// ===== INSTANCES =====

func (s *assessmentService) Start(ctx context.Context, surveyID string, req *StartInstanceRequest) (resp *InstanceResponse, err error) {
	op := s.logger.WithOperation(ctx, "start_instance", surveyID)
	var instanceID string
	defer func() { op.LogResult(instanceID, err) }()

	rt, err := s.runtime(surveyID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &StartInstanceRequest{}
	}
	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Starting over keeps earlier answers; every live instance is only archived.
	for _, prev := range rt.gateway.ListAll(ctx) {
		if prev.Metadata.State == models.StateArchived {
			continue
		}
		prevState := prev.Metadata.State
		prev.Metadata.State = models.StateArchived
		if _, saveErr := rt.gateway.Save(ctx, prev.ID, prev.Answers, prev.Metadata); saveErr != nil {
			err = fmt.Errorf("%w: archive %s: %v", ErrPersistence, prev.ID, saveErr)
			return nil, err
		}
		s.publishLifecycle(ctx, events.EventInstanceArchived, prev, prevState, 0)
	}

	survey := rt.engine.Survey()
	metadata := models.InstanceMetadata{
		Position:     models.NavigationPosition{CategoryID: survey.Categories[0].ID},
		AssessorName: req.AssessorName,
		State:        models.StateNotStarted,
		CreatedAt:    s.now(),
	}
	instanceID, err = rt.gateway.Save(ctx, "", models.Answers{}, metadata)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrPersistence, err)
		return nil, err
	}

	instance := rt.gateway.Load(ctx, instanceID)
	if instance == nil {
		err = fmt.Errorf("%w: instance %s not readable after save", ErrPersistence, instanceID)
		return nil, err
	}
	s.publishLifecycle(ctx, events.EventInstanceStarted, instance, "", 0)

	return s.toResponse(rt, instance), nil
}

func (s *assessmentService) Get(ctx context.Context, surveyID, instanceID string) (*InstanceResponse, error) {
	rt, instance, err := s.load(ctx, surveyID, instanceID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(rt, instance), nil
}

func (s *assessmentService) List(ctx context.Context, surveyID string, req *ListInstancesRequest) ([]*InstanceSummary, error) {
	rt, err := s.runtime(surveyID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &ListInstancesRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	instances := rt.gateway.List(ctx, repositories.InstanceFilters{
		UpdatedAfter: req.UpdatedAfter,
		Limit:        req.Limit,
		Offset:       req.Offset,
	})
	out := make([]*InstanceSummary, 0, len(instances))
	for _, instance := range instances {
		progress, _ := rt.engine.Progress("", instance.Answers)
		out = append(out, &InstanceSummary{
			ID:           instance.ID,
			State:        instance.Metadata.State,
			AssessorName: instance.Metadata.AssessorName,
			CreatedAt:    instance.Metadata.CreatedAt,
			UpdatedAt:    instance.Metadata.UpdatedAt,
			Progress:     progress,
		})
	}
	return out, nil
}

func (s *assessmentService) AnswerQuestion(ctx context.Context, surveyID, instanceID, questionID string, req *AnswerRequest) (resp *InstanceResponse, err error) {
	op := s.logger.WithOperation(ctx, "answer_question", surveyID)
	defer func() { op.LogResult(instanceID, err) }()

	rt, instance, err := s.load(ctx, surveyID, instanceID)
	if err != nil {
		return nil, err
	}
	instanceID = instance.ID

	question, _ := rt.engine.Survey().Question(questionID)
	if question == nil {
		err = fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
		return nil, err
	}

	if req.Value.IsEmpty() {
		delete(instance.Answers, questionID)
	} else {
		value, normErr := normalizeAnswer(question, req.Value)
		if normErr != nil {
			err = normErr
			return nil, err
		}
		instance.Answers[questionID] = value
	}

	prevState := instance.Metadata.State
	progress, _ := rt.engine.Progress("", instance.Answers)
	stored := prevState
	if stored == models.StateArchived {
		// Editing an archived instance reopens it.
		stored = models.StateInProgress
	}
	instance.Metadata.State = scoring.DeriveState(stored, instance.Answers, progress)

	if _, err = rt.gateway.Save(ctx, instance.ID, instance.Answers, instance.Metadata); err != nil {
		err = fmt.Errorf("%w: %v", ErrPersistence, err)
		return nil, err
	}

	s.publishTransition(ctx, rt, instance, prevState)
	return &InstanceResponse{
		Instance:         instance,
		Progress:         progress,
		VisibleQuestions: rt.engine.VisibleQuestions(instance.Answers),
	}, nil
}

func (s *assessmentService) Navigate(ctx context.Context, surveyID, instanceID string, req *NavigateRequest) (resp *InstanceResponse, err error) {
	op := s.logger.WithOperation(ctx, "navigate", surveyID)
	defer func() { op.LogResult(instanceID, err) }()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}
	rt, instance, err := s.load(ctx, surveyID, instanceID)
	if err != nil {
		return nil, err
	}
	instanceID = instance.ID

	category := rt.engine.Survey().Category(req.CategoryID)
	if category == nil || req.QuestionIndex >= len(category.Questions) {
		err = fmt.Errorf("%w: %s[%d]", ErrInvalidPosition, req.CategoryID, req.QuestionIndex)
		return nil, err
	}

	instance.Metadata.Position = models.NavigationPosition{CategoryID: req.CategoryID, QuestionIndex: req.QuestionIndex}
	if _, err = rt.gateway.Save(ctx, instance.ID, instance.Answers, instance.Metadata); err != nil {
		err = fmt.Errorf("%w: %v", ErrPersistence, err)
		return nil, err
	}
	return s.toResponse(rt, instance), nil
}

func (s *assessmentService) Evaluate(ctx context.Context, surveyID, instanceID string) (*scoring.Evaluation, error) {
	rt, instance, err := s.load(ctx, surveyID, instanceID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, rt, instance.Answers), nil
}

func (s *assessmentService) evaluate(ctx context.Context, rt *surveyRuntime, answers models.Answers) *scoring.Evaluation {
	key := cache.EvaluationKey(rt.scope, answers)

	var cached scoring.Evaluation
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		// Progress is always recomputed.
		cached.Progress, _ = rt.engine.Progress("", answers)
		return &cached
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Logger().Warn("Evaluation cache unavailable", "error", err)
	}

	evaluation := rt.engine.Evaluate(answers)
	if err := s.cache.Set(ctx, key, evaluation, s.cacheTTL); err != nil {
		s.logger.Logger().Warn("Failed to cache evaluation", "survey_id", evaluation.SurveyID, "error", err)
	}
	return evaluation
}

func (s *assessmentService) Discard(ctx context.Context, surveyID, instanceID string) (err error) {
	op := s.logger.WithOperation(ctx, "discard_instance", surveyID)
	defer func() { op.LogResult(instanceID, err) }()

	rt, err := s.runtime(surveyID)
	if err != nil {
		return err
	}

	if instanceID == "" {
		if instanceID = rt.gateway.ActiveID(ctx); instanceID == "" {
			return nil
		}
	}
	instance := rt.gateway.Load(ctx, instanceID)
	if instance == nil {
		err = fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
		return err
	}

	if err = rt.gateway.Clear(ctx, instanceID); err != nil {
		if !IsNotFound(err) {
			err = fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return err
	}

	prevState := instance.Metadata.State
	instance.Metadata.State = models.StateDiscarded
	s.publishLifecycle(ctx, events.EventInstanceDiscarded, instance, prevState, 0)
	return nil
}

// ===== HELPERS =====

func (s *assessmentService) load(ctx context.Context, surveyID, instanceID string) (*surveyRuntime, *models.AssessmentInstance, error) {
	rt, err := s.runtime(surveyID)
	if err != nil {
		return nil, nil, err
	}
	instance := rt.gateway.Load(ctx, instanceID)
	if instance == nil {
		if instanceID == "" {
			return nil, nil, fmt.Errorf("%w: no saved instance for %s", ErrInstanceNotFound, surveyID)
		}
		return nil, nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}
	if instance.Answers == nil {
		instance.Answers = models.Answers{}
	}
	return rt, instance, nil
}

func (s *assessmentService) toResponse(rt *surveyRuntime, instance *models.AssessmentInstance) *InstanceResponse {
	progress, _ := rt.engine.Progress("", instance.Answers)
	return &InstanceResponse{
		Instance:         instance,
		Progress:         progress,
		VisibleQuestions: rt.engine.VisibleQuestions(instance.Answers),
	}
}

// normalizeAnswer checks value against the question's answer type and returns
// it in canonical form.
func normalizeAnswer(q *models.Question, value models.AnswerValue) (models.AnswerValue, error) {
	switch q.AnswerType {
	case models.SingleChoice:
		if value.Kind() == models.AnswerList {
			return models.AnswerValue{}, fmt.Errorf("%w: %s takes a single option", ErrInvalidAnswer, q.ID)
		}
		id := value.String()
		if _, ok := q.Option(id); !ok {
			return models.AnswerValue{}, fmt.Errorf("%w: %q is not an option of %s", ErrInvalidAnswer, id, q.ID)
		}
		return models.TextAnswer(id), nil
	case models.MultipleChoice:
		ids := value.Strings()
		for _, id := range ids {
			if _, ok := q.Option(id); !ok {
				return models.AnswerValue{}, fmt.Errorf("%w: %q is not an option of %s", ErrInvalidAnswer, id, q.ID)
			}
		}
		return models.ListAnswer(ids...), nil
	case models.NumberInput, models.NumericRange:
		f, ok := value.Float()
		if !ok {
			return models.AnswerValue{}, fmt.Errorf("%w: %s expects a number", ErrInvalidAnswer, q.ID)
		}
		return models.NumberAnswer(f), nil
	default:
		return value, nil
	}
}

func (s *assessmentService) publishTransition(ctx context.Context, rt *surveyRuntime, instance *models.AssessmentInstance, prev models.LifecycleState) {
	next := instance.Metadata.State
	if next == prev {
		return
	}
	switch {
	case next == models.StateComplete:
		evaluation := s.evaluate(ctx, rt, instance.Answers)
		s.publishLifecycle(ctx, events.EventInstanceCompleted, instance, prev, evaluation.Overall.Percentage)
		if len(evaluation.Risks) > 0 {
			s.publishRisks(ctx, instance, evaluation.Risks)
		}
	case prev == models.StateComplete || prev == models.StateArchived:
		s.publishLifecycle(ctx, events.EventInstanceReopened, instance, prev, 0)
	}
}

func (s *assessmentService) publishLifecycle(ctx context.Context, eventType events.EventType, instance *models.AssessmentInstance, prev models.LifecycleState, overall float64) {
	s.publish(ctx, events.NewAssessmentEvent(eventType, events.InstanceLifecycleEvent{
		SurveyID:      instance.SurveyID,
		InstanceID:    instance.ID,
		State:         string(instance.Metadata.State),
		PreviousState: string(prev),
		AssessorName:  instance.Metadata.AssessorName,
		OverallScore:  overall,
	}))
}

func (s *assessmentService) publishRisks(ctx context.Context, instance *models.AssessmentInstance, risks []scoring.DiseaseRisk) {
	summaries := make([]events.RiskSummary, 0, len(risks))
	for _, r := range risks {
		summaries = append(summaries, events.RiskSummary{
			DiseaseID:    r.DiseaseID,
			RiskLevel:    string(r.RiskLevel),
			TotalWeight:  r.TotalWeight,
			TriggerCount: r.TriggerCount,
		})
	}
	s.publish(ctx, events.NewAssessmentEvent(events.EventRisksDetected, events.RisksDetectedEvent{
		SurveyID:   instance.SurveyID,
		InstanceID: instance.ID,
		Risks:      summaries,
	}))
}

// publish never fails the calling operation.
func (s *assessmentService) publish(ctx context.Context, event *events.AssessmentEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAssessmentEvent(ctx, event); err != nil {
		s.logger.Logger().Warn("Failed to publish assessment event",
			"event_type", event.Type, "event_id", event.ID, "error", err)
	}
}
