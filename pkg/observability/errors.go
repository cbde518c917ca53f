package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrErrType   = "error.type"
	attrErrSource = "error.source"
)

// Error type values for the error.type span attribute.
const (
	// ErrTypeValidation marks errors caused by invalid input.
	ErrTypeValidation = "validation"

	// ErrTypeInternal marks unexpected internal failures.
	ErrTypeInternal = "internal"

	// ErrTypeDependencyUnavailable marks failures of an external dependency.
	ErrTypeDependencyUnavailable = "dependency_unavailable"

	// errTypePanic marks recovered panics.
	errTypePanic = "panic"
)

// Error source values for the error.source span attribute.
const (
	// ErrSourceClient attributes the error to the caller.
	ErrSourceClient = "client"

	// ErrSourceServer attributes the error to this process.
	ErrSourceServer = "server"

	// ErrSourceDependency attributes the error to an external system.
	ErrSourceDependency = "dependency"
)

// RecordSpanError records err on the span with a classified error.type
// attribute and sets the span status to Error. An empty errSource omits
// the error.source attribute.
func RecordSpanError(span trace.Span, err error, errType, errSource string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(attrErrType, errType))

	if errSource != "" {
		span.SetAttributes(attribute.String(attrErrSource, errSource))
	}
}
