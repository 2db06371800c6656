// Package errors provides the error taxonomy of the workflow engine.
// Every failure the engine raises is an *AppError carrying a machine-readable
// code, a human-readable message, structured details and the underlying
// cause. Codes survive wrapping: HasCode walks the whole causal chain, so an
// evaluation failure caused by a loader failure reports both codes.
package errors
