// Package interval implements a small algebra over closed integer
// intervals on a single reference sequence: union, intersection,
// difference, complement, and enumeration.
//
// Unlike the interval-tree-backed union type this package replaces
// (grailbio/bio's bedunion.go, built over biogo/store's interval tree), a
// Set here is a plain sorted, coalesced slice of Pairs. Per-gene covered-
// position counts are bounded by read depth times gene length, so a tree
// buys nothing at this scale; see DESIGN.md.
package interval
