package errors

// DiagnosticBuilder provides a fluent interface for assembling diagnostics
type DiagnosticBuilder struct {
	d Diagnostic
}

// NewDiagnostic starts an error-level diagnostic
func NewDiagnostic(code, message string, pos Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		d: Diagnostic{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
		},
	}
}

// WithLevel overrides the severity
func (b *DiagnosticBuilder) WithLevel(level ErrorLevel) *DiagnosticBuilder {
	b.d.Level = level
	return b
}

// WithLength sets the length of the highlighted span; 0 spans the trimmed line
func (b *DiagnosticBuilder) WithLength(length int) *DiagnosticBuilder {
	b.d.Length = length
	return b
}

func (b *DiagnosticBuilder) WithNote(note string) *DiagnosticBuilder {
	if note != "" {
		b.d.Notes = append(b.d.Notes, note)
	}
	return b
}

func (b *DiagnosticBuilder) WithHelp(help string) *DiagnosticBuilder {
	b.d.HelpText = help
	return b
}

// Build returns the completed diagnostic
func (b *DiagnosticBuilder) Build() Diagnostic {
	return b.d
}
