// Package schemas provides JSON Schema validation for audit reports received from clients.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed audit_report.schema.json
var auditReportSchema string

// AuditReportSchema returns the embedded axe-core report schema.
func AuditReportSchema() string {
	return auditReportSchema
}

// compiledAuditReport compiles the embedded schema on first use.
var compiledAuditReport = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(auditReportSchema))
})

// FieldError is one schema violation. Field is a dotted path such as
// "violations.0.nodes.1.target", or "(root)" for the document itself.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every schema violation found in a report.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	parts := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "audit report validation failed: " + strings.Join(parts, "; ")
}

// DecodeError means the report could not be checked at all: the document is not
// JSON or the schema itself failed to compile.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("audit report is not valid JSON: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ValidateAuditReport validates raw report JSON against the embedded schema.
func ValidateAuditReport(data []byte) error {
	schema, err := compiledAuditReport()
	if err != nil {
		return &DecodeError{Cause: fmt.Errorf("compile schema: %w", err)}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &DecodeError{Cause: err}
	}
	if result.Valid() {
		return nil
	}

	problems := result.Errors()
	verr := &ValidationError{Errors: make([]FieldError, 0, len(problems))}
	for _, desc := range problems {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}
