// Package gtf loads the gene-feature rows of a GTF annotation file: the
// gene ID (or name), reference sequence, and span each gene task is
// fetched against.
//
// Only "gene" feature rows are read; transcript and exon rows are not part
// of this pipeline's input. Parsing follows the same tsv.Reader-over-a
// compressed-file pattern as fusion/parsegencode.
package gtf
