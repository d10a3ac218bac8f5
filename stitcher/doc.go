// Package stitcher reconstructs one consensus alignment per (cell barcode,
// gene, UMI) read group: a per-column base/quality consensus vote, the
// covered/skipped/deleted footprint partition that follows from it, and the
// SAM record that represents it.
//
// The kernel in this package is pure: it consumes a slice of ReadView values
// for a single group and returns a MasterMolecule, with no I/O and no
// knowledge of BAM files, worker pools, or the filesystem. Those concerns
// live in encoding/htsio, isoformdb, and Run in run.go.
package stitcher
