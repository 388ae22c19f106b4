package model

import (
	"errors"
	"fmt"
	"time"
)

type ValidationError struct {
	Record string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("record %s: invalid %s: %s", e.Record, e.Field, e.Reason)
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

type ComputationError struct {
	Field string
	Value float64
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s is not finite (%v)", e.Field, e.Value)
}

// InvalidRangeError reports a reference instant that precedes the timestamp
// being measured. The relative time formatter clamps instead of returning it;
// it is used when validating explicit ranges.
type InvalidRangeError struct {
	From time.Time
	To   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: %s is after %s", e.From.Format(time.RFC3339), e.To.Format(time.RFC3339))
}

// DiagnosticFrom converts a per-record error into a diagnostic entry.
func DiagnosticFrom(kind, record string, err error) Diagnostic {
	var ve *ValidationError
	if errors.As(err, &ve) && record == "" {
		record = ve.Record
	}
	return Diagnostic{Kind: kind, Record: record, Message: err.Error()}
}
