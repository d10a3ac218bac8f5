// Package isoformdb loads the per-gene exonic-coverage and splice-junction
// isoform indices used by the stitcher's isoform resolver.
//
// Both indices are JSON files shaped as gene_id -> {interval_string:
// comma_joined_isoform_ids}, with "intronic" used as a sentinel isoform set
// for positions outside every named isoform's footprint. Loading uses the
// standard library encoding/json: these files are small, gene-scoped lookup
// tables with no schema evolution concerns, so no third-party codec in the
// pack's dependency surface buys anything over encoding/json here.
package isoformdb
