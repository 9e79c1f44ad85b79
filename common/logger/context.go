package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Handlers and services enrich the context once, and every log line below them
// carries the workshop/step/session it was written for.
type LogFields struct {
	WorkshopID *int64  // Workshop being worked on
	StepID     *int64  // Step being edited or locked
	SessionID  *string // Editing session id
	UserID     *string // Principal supplied by the auth proxy
	Component  string  // Component name (OTel semantic convention style, e.g., "inception.service.coordinator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.WorkshopID != nil {
		result.WorkshopID = new.WorkshopID
	}
	if new.StepID != nil {
		result.StepID = new.StepID
	}
	if new.SessionID != nil {
		result.SessionID = new.SessionID
	}
	if new.UserID != nil {
		result.UserID = new.UserID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{StepID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}
