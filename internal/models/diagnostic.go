package models

// Diagnostic types distinguish a fully rejected batch from a partially
// accepted one. The body shape is identical; only the paired HTTP status
// differs (400 vs 202).
const (
	DiagnosticError   = "error"
	DiagnosticPartial = "partial"
)

// Diagnostic is the completion body summarising why a batch was rejected or
// only partially accepted.
type Diagnostic struct {
	Type       string   `json:"type"`
	ErrorCount int      `json:"errorCount"`
	Message    []string `json:"message"`
}

// EmptyPayloadDiagnostic describes a batch with no values and no failures.
func EmptyPayloadDiagnostic() *Diagnostic {
	return &Diagnostic{Type: DiagnosticError, ErrorCount: 1, Message: []string{"empty payload"}}
}

// FailureDiagnostic summarises a failure list under the given diagnostic type.
func FailureDiagnostic(diagType string, failures []ValidationFailure) *Diagnostic {
	messages := make([]string, 0, len(failures))
	for _, f := range failures {
		messages = append(messages, f.Error)
	}
	return &Diagnostic{Type: diagType, ErrorCount: len(failures), Message: messages}
}
