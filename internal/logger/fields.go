package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldEnvironment is the structured log field key for the selected service environment.
	FieldEnvironment = "suggestion_env"
	// FieldURL is the structured log field key for the suggestion service base URL.
	FieldURL = "suggestion_url"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger handed to the suggestion client.
// Callers may pass nil; the client then logs nowhere.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// ServiceFields describes which suggestion service deployment a logger talks to.
func ServiceFields(environment, baseURL string) []zap.Field {
	return StringFields(
		StringField{Key: FieldEnvironment, Value: environment},
		StringField{Key: FieldURL, Value: baseURL},
	)
}

func WithServiceFields(logger *zap.Logger, environment, baseURL string) *zap.Logger {
	return WithFields(logger, ServiceFields(environment, baseURL)...)
}
