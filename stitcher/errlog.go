package stitcher

import (
	"bufio"
	"fmt"
	"io"
)

// ErrorLog is the sidecar output for group-level stitching failures: one
// line per failed group key, with a trailing "Gene:<gene_id>" marker after
// each gene's batch that produced at least one successful molecule. It is
// written by a single goroutine (the writer in run.go); ErrorLog itself
// does no locking.
type ErrorLog struct {
	w *bufio.Writer
}

// NewErrorLog wraps w as an ErrorLog sink.
func NewErrorLog(w io.Writer) *ErrorLog {
	return &ErrorLog{w: bufio.NewWriter(w)}
}

// Fail records one failed group, keyed as "gene:cell:umi".
func (l *ErrorLog) Fail(key GroupKey) {
	fmt.Fprintln(l.w, key.String())
}

// GeneDone writes the trailing marker for a gene's batch, if that gene
// produced at least one successful molecule.
func (l *ErrorLog) GeneDone(gene string, hadSuccess bool) {
	if !hadSuccess {
		return
	}
	fmt.Fprintf(l.w, "Gene:%s\n", gene)
}

// Flush pushes any buffered lines to the underlying writer.
func (l *ErrorLog) Flush() error {
	return l.w.Flush()
}
