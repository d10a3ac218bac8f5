// Package errormodel holds the precomputed log-likelihood tables used by
// the stitcher kernel's per-column consensus vote, and the log-sum-exp
// helper used to turn per-base log-likelihoods into a posterior.
//
// The tables are immutable and process-wide: they depend only on Phred
// quality, never on input data, so they are computed once at package
// initialization and shared by every goroutine that stitches a read group.
package errormodel
