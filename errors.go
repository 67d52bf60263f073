package factmat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ruleweave/factmat/i18n"
)

// ErrStrategyUnavailable reports that the struct strategy cannot build
// concrete types in the current runtime. It is the only error the
// Materializer recovers from automatically (by falling back to the map
// strategy); every other failure propagates unchanged.
var ErrStrategyUnavailable = errors.New("factmat: struct strategy unavailable in this runtime")

// SchemaNotFoundError reports an unknown schema name. An empty Name means
// the element carried no discriminator under auto-detect.
type SchemaNotFoundError struct {
	Name string
	// Key is the discriminator key that was consulted; set when Name is empty.
	Key string
}

func (e *SchemaNotFoundError) Error() string {
	if e.Name == "" {
		return i18n.T("discriminator_missing", map[string]string{"key": e.Key})
	}
	return i18n.T("schema_not_found", map[string]string{"name": e.Name})
}

// ValidationError reports required fields absent from the input. Missing
// enumerates every absent field, not just the first.
type ValidationError struct {
	Schema  string
	Missing []string
}

func (e *ValidationError) Error() string {
	return i18n.T("required_missing", map[string]string{
		"schema": e.Schema,
		"fields": strings.Join(e.Missing, ", "),
	})
}

// CoercionError reports a field value that cannot be converted to its
// declared type.
type CoercionError struct {
	Field string
	Type  FieldType
	Value any
	Cause error
}

func (e *CoercionError) Error() string {
	msg := i18n.T("coercion_failed", map[string]string{
		"field": e.Field,
		"type":  e.Type.String(),
		"value": fmt.Sprintf("%v (%T)", e.Value, e.Value),
	})
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() error { return e.Cause }

// MaterializationError reports a failure to build or populate a concrete
// type in the struct strategy. Source carries the rendered Go source of
// the derived type and Diagnostics the individual build errors; neither is
// elided so callers can see exactly what was rejected.
type MaterializationError struct {
	Schema      string
	Field       string // offending field, when attributable
	Source      string
	Diagnostics []string
	Cause       error
}

func (e *MaterializationError) Error() string {
	b := &strings.Builder{}
	b.WriteString(i18n.T("materialization_failed", map[string]string{"schema": e.Schema}))
	if e.Field != "" {
		fmt.Fprintf(b, " (field %q)", e.Field)
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n\t")
		b.WriteString(d)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.Source != "" {
		b.WriteString("\ngenerated source:\n")
		b.WriteString(e.Source)
	}
	return b.String()
}

func (e *MaterializationError) Unwrap() error { return e.Cause }

// UnsupportedOperationError reports a Fact access that the schema does not
// define, such as reading a field that does not exist.
type UnsupportedOperationError struct {
	Schema string
	Op     string
}

func (e *UnsupportedOperationError) Error() string {
	return i18n.T("unsupported_op", map[string]string{"schema": e.Schema, "op": e.Op})
}

// ElementError ties a failure to the position of the batch element that
// produced it.
type ElementError struct {
	Index int
	Err   error
}

func (e ElementError) Error() string { return fmt.Sprintf("element %d: %v", e.Index, e.Err) }

func (e ElementError) Unwrap() error { return e.Err }

// BatchError collects per-element failures from a batch materialization.
// Elements that materialized successfully are still returned to the
// caller; BatchError covers only the failed positions.
type BatchError []ElementError

// Error summarizes the first few element failures.
func (b BatchError) Error() string {
	if len(b) == 0 {
		return ""
	}
	const maxShown = 3
	sb := &strings.Builder{}
	lim := len(b)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(b[i].Error())
	}
	if len(b) > lim {
		fmt.Fprintf(sb, "; ... (total %d)", len(b))
	}
	return sb.String()
}

// Unwrap exposes the element errors to errors.Is/As.
func (b BatchError) Unwrap() []error {
	out := make([]error, len(b))
	for i, e := range b {
		out[i] = e
	}
	return out
}

// AsBatchError extracts a BatchError from an error chain.
func AsBatchError(err error) (BatchError, bool) {
	if err == nil {
		return nil, false
	}
	var be BatchError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
