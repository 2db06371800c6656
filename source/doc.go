// Package source loads raw measurement files into Datasets.
//
// It resolves a path descriptor to a list of files, reads whitespace
// separated ASCII column files and the XDI exchange format, and registers
// the from_source and from_aps_20bmb loader operations.
package source
