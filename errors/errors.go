package errors

import (
	stderrors "errors"
	"fmt"
)

// Detail keys set by the engine.
const (
	DetailOperation  = "operation"
	DetailStepIndex  = "step_index"
	DetailStep       = "step"
	DetailDescriptor = "descriptor"
	DetailArgument   = "argument"
)

// AppError is the unified engine error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Constructors ---

// DuplicateOperation creates an error for a name that is already registered.
func DuplicateOperation(name string) *AppError {
	return &AppError{
		Code: ErrCodeDuplicateOperation, Message: fmt.Sprintf("operation %q is already registered", name),
		Details: map[string]any{DetailOperation: name},
	}
}

// UnknownOperation creates an error for a name missing from the registry.
func UnknownOperation(name string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownOperation, Message: fmt.Sprintf("operation %q is not registered", name),
		Details: map[string]any{DetailOperation: name},
	}
}

// InvalidSchema creates an error for a malformed argument schema.
func InvalidSchema(name, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidSchema, Message: fmt.Sprintf("invalid schema for %q: %s", name, reason),
		Details: map[string]any{DetailOperation: name},
	}
}

// ArgumentValidation creates an error describing the first violated argument constraint.
func ArgumentValidation(name, argument, reason string) *AppError {
	details := map[string]any{DetailOperation: name}
	if argument != "" {
		details[DetailArgument] = argument
	}
	msg := fmt.Sprintf("%s: %s", name, reason)
	if argument != "" {
		msg = fmt.Sprintf("%s: argument %q %s", name, argument, reason)
	}
	return &AppError{Code: ErrCodeArgumentValidation, Message: msg, Details: details}
}

// FrozenRegistry creates an error for a registration after Freeze.
func FrozenRegistry(name string) *AppError {
	return &AppError{
		Code: ErrCodeFrozenRegistry, Message: fmt.Sprintf("cannot register %q: registry is frozen", name),
		Details: map[string]any{DetailOperation: name},
	}
}

// TypeMismatch creates an error for a dataset whose shape does not fit a step.
func TypeMismatch(name, reason string) *AppError {
	return &AppError{
		Code: ErrCodeTypeMismatch, Message: fmt.Sprintf("%s: %s", name, reason),
		Details: map[string]any{DetailOperation: name},
	}
}

// Evaluation creates an error for the failure of the step at index.
func Evaluation(index int, step string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeEvaluation, Message: fmt.Sprintf("step %d (%s) failed", index, step),
		Details: map[string]any{DetailStepIndex: index, DetailStep: step},
		Cause:   cause,
	}
}

// StepFailed creates an evaluation error for a step outside any pipeline,
// so no index is known yet.
func StepFailed(step string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeEvaluation, Message: fmt.Sprintf("%s failed", step),
		Details: map[string]any{DetailStep: step},
		Cause:   cause,
	}
}

// SourceLoad creates an error for a loader failure.
func SourceLoad(descriptor string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSourceLoad, Message: fmt.Sprintf("could not load source %q", descriptor),
		Details: map[string]any{DetailDescriptor: descriptor},
		Cause:   cause,
	}
}

// InvalidInput creates an error for an invalid argument to an engine call.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an error for failed struct validation.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "an unexpected error occurred", Cause: cause}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// StepIndex returns the index of the failing step recorded by an evaluation error.
func StepIndex(err error) (int, bool) {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == ErrCodeEvaluation {
			idx, ok := appErr.Details[DetailStepIndex].(int)
			return idx, ok
		}
		err = stderrors.Unwrap(err)
	}
	return 0, false
}

// Is reports whether err is target. Re-exported so callers need one import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }
