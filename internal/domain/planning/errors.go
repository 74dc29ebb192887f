package planning

import (
	"fmt"
	"strings"
)

// WarningKind classifies recoverable per-row problems found during a run.
type WarningKind string

const (
	// WarningDataIntegrity marks a BOM row skipped for a zero or negative
	// denominator/batch size.
	WarningDataIntegrity WarningKind = "DATA_INTEGRITY"

	// WarningMissingClassification marks an item excluded from base/flavor
	// aggregation because it has no classification.
	WarningMissingClassification WarningKind = "MISSING_CLASSIFICATION"
)

// Warning is a recovered problem attached to the run result.
type Warning struct {
	Kind       WarningKind `json:"kind"`
	Source     string      `json:"source,omitempty"`
	ItemCode   string      `json:"itemCode,omitempty"`
	BaseID     int64       `json:"baseId,omitempty"`
	FlavorID   int64       `json:"flavorId,omitempty"`
	MaterialID int64       `json:"materialId,omitempty"`
	Message    string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// FieldError is one rejected input field.
type FieldError struct {
	Index    int    `json:"index"`
	ItemCode string `json:"itemCode,omitempty"`
	Field    string `json:"field"`
	Reason   string `json:"reason"`
}

// InputValidationError rejects a whole run before any output is produced.
type InputValidationError struct {
	Fields []FieldError
}

func (e *InputValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("[%d] %s: %s", f.Index, f.Field, f.Reason))
	}
	return "invalid planning input: " + strings.Join(parts, "; ")
}

func (e *InputValidationError) add(index int, itemCode, field, reason string) {
	e.Fields = append(e.Fields, FieldError{Index: index, ItemCode: itemCode, Field: field, Reason: reason})
}

func (e *InputValidationError) empty() bool {
	return len(e.Fields) == 0
}
