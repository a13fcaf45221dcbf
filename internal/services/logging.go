package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

type contextKey string

// RequestIDKey carries the request id set by the HTTP middleware.
const RequestIDKey contextKey = "request_id"

// maxLoggedValidationErrors bounds the per-field groups on a validation record.
const maxLoggedValidationErrors = 5

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
}

type LogConfig struct {
	Service   string
	Component string
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
	}
}

func (l *ServiceLogger) Logger() *slog.Logger { return l.logger }

// operationStatus classifies an operation outcome for the status attribute
// and picks the record level.
func operationStatus(err error) (string, slog.Level) {
	switch {
	case err == nil:
		return "success", slog.LevelInfo
	case IsNotFound(err):
		return "not_found", slog.LevelInfo
	case IsValidation(err):
		return "validation_error", slog.LevelWarn
	default:
		return "error", slog.LevelError
	}
}

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, surveyID, instanceID string, duration time.Duration, err error) {
	status, level := operationStatus(err)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("survey_id", surveyID),
		slog.String("instance_id", instanceID),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	if level == slog.LevelError {
		if pc, file, line, ok := runtime.Caller(2); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				attrs = append(attrs,
					slog.String("caller_func", fn.Name()),
					slog.String("caller_file", file),
					slog.Int("caller_line", line),
				)
			}
		}
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation string, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Int("error_count", len(validationErrors)),
	}
	for i, err := range validationErrors {
		if i == maxLoggedValidationErrors {
			break
		}
		attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
			slog.String("field", err.Field),
			slog.String("message", err.Message),
			slog.Any("value", err.Value),
		))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

// OperationLogger times one service call and logs its outcome.
type OperationLogger struct {
	logger    *ServiceLogger
	operation string
	surveyID  string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, surveyID string) *OperationLogger {
	return &OperationLogger{
		logger:    l,
		operation: operation,
		surveyID:  surveyID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (ol *OperationLogger) LogResult(instanceID string, err error) {
	ol.logger.LogOperation(ol.ctx, ol.operation, ol.surveyID, instanceID, time.Since(ol.startTime), err)

	var validationErrors ValidationErrors
	if errors.As(err, &validationErrors) {
		ol.logger.LogValidationError(ol.ctx, ol.operation, validationErrors)
	}
}
