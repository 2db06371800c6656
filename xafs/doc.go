// Package xafs implements X-ray absorption fine structure operations on
// Datasets: converting raw counts to µ(E), merging scans, normalizing the
// edge jump, extracting χ(k), plotting and writing XDI files.
//
// Register adds the operations to a registry. Each operation reads and
// writes named arrays in every group of its input:
//
//	to_mu                energy, mu
//	merge                energy, mu, mu_std (one "merged" group)
//	fit_edge_jump        pre_edge, post_edge, norm, flat; attrs e0, edge_step
//	subtract_background  k, chi, bkg; attr kweight
package xafs
