package source

// AuthenticationError reports that a backend rejected credentials or returned
// no usable identity or token. A 200 response without a usable identity still
// counts: some backends answer rejected logins with an empty success body.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// NetworkError wraps a connection or timeout failure talking to a backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError reports missing or malformed source configuration, caught
// before any request is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + e.Field + ": " + e.Reason
}
