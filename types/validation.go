package types

// ValidationError reports a field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error formats the error as "<field>: <message>".
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
