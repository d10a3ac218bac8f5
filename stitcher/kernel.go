package stitcher

import (
	"math"
	"sort"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/Clarkvale/stitcher/errormodel"
	"github.com/Clarkvale/stitcher/interval"
)

// ErrEmptyGroup is returned by Stitch when given zero reads.
var ErrEmptyGroup = errors.New("stitcher: empty read group")

// ErrNoColumns is returned by Stitch when no read in the group contributes a
// single matched reference column (every read is all soft-clip/insertion).
var ErrNoColumns = errors.New("stitcher: no reference columns covered")

// ErrNoStrandEvidence is returned by Stitch when no read in the group
// qualifies to vote on strand: for paired-end groups this means no read1
// carried a non-empty UMI tag.
var ErrNoStrandEvidence = errors.New("stitcher: no strand evidence")

type readColumns struct {
	positions []int
	bases     []byte
	quals     []byte
	skipped   []interval.Pair
}

// walkCigar strips insertion and clip bases from a read's query, and
// returns the (reference position, base, quality) triple for each
// match/mismatch column, plus the read's own N-op skip intervals.
func walkCigar(r ReadView) readColumns {
	var cols readColumns
	qi := 0
	rpos := r.Pos
	for _, op := range r.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < n; i++ {
				cols.positions = append(cols.positions, rpos)
				cols.bases = append(cols.bases, r.Seq[qi])
				cols.quals = append(cols.quals, r.Qual[qi])
				qi++
				rpos++
			}
		case sam.CigarInsertion, sam.CigarSoftClipped:
			qi += n
		case sam.CigarDeletion:
			rpos += n
		case sam.CigarSkipped:
			cols.skipped = append(cols.skipped, interval.Pair{Lo: rpos, Hi: rpos + n - 1})
			rpos += n
		default:
			// Hard clips and padding consume neither query nor reference.
		}
	}
	return cols
}

// Stitch computes the consensus MasterMolecule for one read group. reads
// must all share the same GroupKey; singleEnd controls which reads vote on
// strand (see spec for the exact rule).
func Stitch(reads []ReadView, singleEnd bool, key GroupKey) (*MasterMolecule, error) {
	if len(reads) == 0 {
		return nil, errors.Wrapf(ErrEmptyGroup, "group %s", key)
	}

	refName := reads[0].Ref
	for _, r := range reads {
		if r.Ref != refName {
			return nil, errors.Errorf("stitcher: group %s spans multiple reference sequences (%s, %s)", key, refName, r.Ref)
		}
	}

	perRead := make([]readColumns, len(reads))
	posSet := make(map[int]struct{})
	var skipped []interval.Pair
	exonic, intronic := 0, 0
	var strandVotes []bool

	for i, r := range reads {
		cols := walkCigar(r)
		perRead[i] = cols
		for _, p := range cols.positions {
			posSet[p] = struct{}{}
		}
		skipped = append(skipped, cols.skipped...)

		if r.Exonic {
			exonic++
		}
		if r.Intronic {
			intronic++
		}

		if (r.Read1 && !singleEnd && key.UMI != "") || singleEnd {
			strandVotes = append(strandVotes, r.Reverse)
		}
	}

	if len(posSet) == 0 {
		return nil, errors.Wrapf(ErrNoColumns, "group %s", key)
	}

	columns := make([]int, 0, len(posSet))
	for p := range posSet {
		columns = append(columns, p)
	}
	sort.Ints(columns)
	colIndex := make(map[int]int, len(columns))
	for i, p := range columns {
		colIndex[p] = i
	}

	// S[col][nucleotideIndex] accumulates log-likelihood contributions from
	// every read that covers that reference column.
	ll := make([][4]float64, len(columns))
	for _, cols := range perRead {
		for i, pos := range cols.positions {
			c := colIndex[pos]
			base := cols.bases[i]
			qual := int(cols.quals[i])
			correct, wrong := errormodel.Lookup(qual)
			calledIdx, isACGT := nucleotideIndex(base)
			for n := 0; n < 4; n++ {
				switch {
				case !isACGT:
					ll[c][n] += errormodel.LLN
				case n == calledIdx:
					ll[c][n] += correct
				default:
					ll[c][n] += wrong
				}
			}
		}
	}

	bases := make([]byte, len(columns))
	quals := make([]byte, len(columns))
	for c := range columns {
		argmax, _, p := errormodel.Posterior(ll[c])
		if p > 0.30 {
			bases[c] = nucleotides[argmax]
		} else {
			bases[c] = 'N'
		}
		phred := math.Round(-10 * math.Log10(1-p+1e-13))
		if phred < 0 {
			phred = 0
		} else if phred > errormodel.MaxQuality {
			phred = errormodel.MaxQuality
		}
		quals[c] = byte(phred)
	}

	if len(strandVotes) == 0 {
		return nil, errors.Wrapf(ErrNoStrandEvidence, "group %s", key)
	}
	reverse := majorityStrand(strandVotes)

	// skippedSet is not yet reconciled against covered: a read's N op can
	// span positions another read covers with M. That conflict is detected
	// and resolved (removed from skipped, recorded as a diagnostic) by
	// Reconstruct, not here — the kernel reports what the reads said.
	covered := interval.FromSorted(columns)
	skippedSet := interval.FromPairs(skipped)
	hull, _ := interval.Union(covered, skippedSet).Hull()
	deleted := interval.Complement(interval.Union(covered, skippedSet), hull)

	return &MasterMolecule{
		Key:     key,
		Ref:     refName,
		Reverse: reverse,
		Footprints: Footprints{
			Covered: covered,
			Skipped: skippedSet,
			Deleted: deleted,
		},
		Bases: bases,
		Quals: quals,
		NR:    len(reads),
		IR:    intronic,
		ER:    exonic,
	}, nil
}

// majorityStrand picks the strand with more votes; ties resolve to the
// forward strand (false). This tie-break is unspecified upstream; we fix it
// here and document the choice rather than leave it to map iteration order.
func majorityStrand(votes []bool) bool {
	var fwd, rev int
	for _, v := range votes {
		if v {
			rev++
		} else {
			fwd++
		}
	}
	return rev > fwd
}
