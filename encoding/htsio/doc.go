// Package htsio is the BAM I/O boundary for the stitcher: reading indexed,
// per-gene read regions in and writing reconstructed molecule records out.
//
// It is the only package that touches github.com/biogo/hts/bam directly;
// everything upstream of it works in terms of stitcher.RawRead and
// *sam.Record so the kernel, reconstructor, and resolver stay free of file
// I/O.
package htsio
