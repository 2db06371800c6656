// Package dataset provides the immutable data model the workflow engine
// operates on.
//
// A Dataset is a set of named Groups (one per measured spectrum, say) plus
// free-form metadata. A Group holds named float arrays and scalar attributes.
// Nothing in this package mutates a value after construction: accessors hand
// out copies and every change goes through a Builder that produces a new
// Dataset. Unchanged groups and arrays are shared between a Dataset and the
// Datasets derived from it.
//
// Every Dataset instance has its own identity (ID). Two Datasets with equal
// contents still have different IDs; Equal compares contents, ID compares
// identity. The workflow engine memoizes on identity.
package dataset
