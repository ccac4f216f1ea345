package service

import (
	"fmt"
	"net/url"
	"strings"

	"dh-form/domain"
)

// ValidationError lists the form controls that were left empty.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// FieldName is the form control name of a row field: "<field>-<id>".
func FieldName(f domain.Field, id domain.RowID) string {
	return string(f) + "-" + string(id)
}

// Capture copies the posted values of every known row into a new slice,
// without validating. Rows absent from values keep what they had.
func Capture(rows []domain.ParameterRow, values url.Values) []domain.ParameterRow {
	out := make([]domain.ParameterRow, len(rows))
	for i, row := range rows {
		for _, f := range domain.Fields {
			name := FieldName(f, row.ID)
			if _, ok := values[name]; ok {
				row = row.WithValue(f, values.Get(name))
			}
		}
		out[i] = row
	}
	return out
}

// Bind reads the four controls of each row in row order and returns the
// records to submit. Every field is required in the same sense as the
// browser's required attribute: only an empty value is missing.
func Bind(rows []domain.ParameterRow, values url.Values) ([]domain.ParameterInput, error) {
	inputs := make([]domain.ParameterInput, 0, len(rows))
	var missing []string

	for _, row := range rows {
		bound := domain.ParameterRow{ID: row.ID}
		for _, f := range domain.Fields {
			name := FieldName(f, row.ID)
			v := values.Get(name)
			if v == "" {
				missing = append(missing, name)
			}
			bound = bound.WithValue(f, v)
		}
		inputs = append(inputs, bound.Input())
	}

	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}
	return inputs, nil
}

// ValidateInputs applies the required-field rule to records that did not
// come through a form, such as the JSON API and the CLI.
func ValidateInputs(inputs []domain.ParameterInput) error {
	if len(inputs) == 0 {
		return &ValidationError{Missing: []string{"rows"}}
	}
	var missing []string
	for i, in := range inputs {
		row := domain.ParameterRow{A: in.A, Alpha: in.Alpha, D: in.D, Theta: in.Theta}
		for _, f := range domain.Fields {
			if row.Value(f) == "" {
				missing = append(missing, fmt.Sprintf("%s-%d", f, i))
			}
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
