package errors

import "fmt"

const (
	InvalidCredentials        = "Invalid email or password"
	EmailAlreadyExist         = "User already exists with this email"
	InvalidTokenError         = "Token is invalid"
	PropertyNotFoundError     = "Property not found"
	InquiryNotFoundError      = "Inquiry not found"
	InvalidRequestFormatError = "Invalid request format"
)

// ValidationError: malformed or missing input, the caller's fault, never
// retried.
type ValidationError struct {
	Message string `json:"message"`
}

func (v *ValidationError) Error() string {
	return v.Message
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError: the referenced entity is absent.
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

func (n *NotFoundError) Error() string {
	if n.ID == "" {
		return fmt.Sprintf("%s not found", n.Resource)
	}
	return fmt.Sprintf("%s %s not found", n.Resource, n.ID)
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// AuthError: credentials rejected or the session is no longer valid.
type AuthError struct {
	Message string `json:"message"`
}

func (a *AuthError) Error() string {
	return a.Message
}

func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}

// TransportError: a collaborator was unreachable or answered with a payload
// that is not valid JSON. Distinct from a legitimate empty result and always
// surfaced to the caller.
type TransportError struct {
	Op  string
	Err error
}

func (t *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", t.Op, t.Err)
}

func (t *TransportError) Unwrap() error {
	return t.Err
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

func IsAuth(err error) bool {
	_, ok := err.(*AuthError)
	return ok
}

func IsTransport(err error) bool {
	_, ok := err.(*TransportError)
	return ok
}
