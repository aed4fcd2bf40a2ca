package dataprocessing

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// RecordIssue describes one field of one observation that breaks the record contract
type RecordIssue struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// InspectRecords checks each observation against its struct tags and returns
// every violation found. Reports are still built from records with issues;
// the result is informational.
func InspectRecords[T any](v *validator.Validate, records []T) []RecordIssue {
	var issues []RecordIssue
	for i := range records {
		err := v.Struct(records[i])
		if err == nil {
			continue
		}

		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			issues = append(issues, RecordIssue{Index: i, Rule: "struct", Message: err.Error()})
			continue
		}
		for _, fe := range fieldErrs {
			issues = append(issues, RecordIssue{
				Index:   i,
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Message: fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()),
			})
		}
	}
	return issues
}
