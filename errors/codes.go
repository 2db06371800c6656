package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Registration and validation errors (raised before a step enters a pipeline)
const (
	// ErrCodeDuplicateOperation indicates an operation name is already registered.
	ErrCodeDuplicateOperation ErrorCode = "DUPLICATE_OPERATION"
	// ErrCodeUnknownOperation indicates an operation name is not registered.
	ErrCodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"
	// ErrCodeInvalidSchema indicates a malformed argument schema.
	ErrCodeInvalidSchema ErrorCode = "INVALID_SCHEMA"
	// ErrCodeArgumentValidation indicates arguments violate an operation's schema.
	ErrCodeArgumentValidation ErrorCode = "ARGUMENT_VALIDATION"
	// ErrCodeFrozenRegistry indicates a registration after the registry was frozen.
	ErrCodeFrozenRegistry ErrorCode = "FROZEN_REGISTRY"
)

// Evaluation errors
const (
	// ErrCodeTypeMismatch indicates a dataset does not have the shape a step expects.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
	// ErrCodeEvaluation indicates a step's domain callable failed.
	ErrCodeEvaluation ErrorCode = "EVALUATION_FAILED"
	// ErrCodeSourceLoad indicates a loader could not produce the initial dataset.
	ErrCodeSourceLoad ErrorCode = "SOURCE_LOAD_FAILED"
)

// Generic errors
const (
	// ErrCodeInvalidInput indicates an invalid argument to an engine call.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
