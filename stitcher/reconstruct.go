package stitcher

import (
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/Clarkvale/stitcher/interval"
)

// ReconstructResult is the alignment derived from a MasterMolecule's
// footprints: a SAM position and CIGAR, plus any covered/skipped conflict
// diagnostics.
type ReconstructResult struct {
	Pos               int // 1-based SAM position
	Cigar             sam.Cigar
	Conflict          bool
	ConflictCount     int
	ConflictEndpoints []uint32 // flattened [lo, hi, lo, hi, ...] of the removed overlap
}

type footprintRun struct {
	op    sam.CigarOpType
	pairs []interval.Pair
}

// Reconstruct derives POS, CIGAR, and conflict diagnostics from m's
// footprints. A read's N-skip can overlap another read's covered columns;
// that overlap is removed from the skip set here (not in Stitch) and
// reported via ConflictCount/ConflictEndpoints rather than treated as an
// error.
func Reconstruct(m *MasterMolecule) (ReconstructResult, error) {
	covered := m.Footprints.Covered
	if covered.Empty() {
		return ReconstructResult{}, errors.Errorf("stitcher: group %s has no covered columns", m.Key)
	}

	conflict := interval.Intersect(covered, m.Footprints.Skipped)
	skipped := m.Footprints.Skipped
	var endpoints []uint32
	conflictCount := 0
	if !conflict.Empty() {
		skipped = interval.Difference(skipped, conflict)
		conflictCount = conflict.Len()
		for _, p := range conflict.Pairs() {
			endpoints = append(endpoints, uint32(p.Lo), uint32(p.Hi))
		}
	}

	hull, _ := covered.Hull()
	pos := hull.Lo + 1

	runs := []footprintRun{
		{op: sam.CigarMatch, pairs: append([]interval.Pair(nil), covered.Pairs()...)},
		{op: sam.CigarSkipped, pairs: append([]interval.Pair(nil), skipped.Pairs()...)},
		{op: sam.CigarDeletion, pairs: append([]interval.Pair(nil), m.Footprints.Deleted.Pairs()...)},
	}

	var cigar sam.Cigar
	for {
		best := -1
		for i, r := range runs {
			if len(r.pairs) == 0 {
				continue
			}
			if best == -1 || r.pairs[0].Lo < runs[best].pairs[0].Lo {
				best = i
			}
		}
		if best == -1 {
			break
		}
		p := runs[best].pairs[0]
		runs[best].pairs = runs[best].pairs[1:]
		cigar = append(cigar, sam.NewCigarOp(runs[best].op, p.Len()))
	}

	return ReconstructResult{
		Pos:               pos,
		Cigar:             cigar,
		Conflict:          conflict.Len() > 0,
		ConflictCount:     conflictCount,
		ConflictEndpoints: endpoints,
	}, nil
}

// ToRecord builds the SAM record for m given its reconstructed alignment.
// ref must be the header's Reference for m.Ref. umiTag is the configured UMI
// tag name (default UB); its aux value is m.Key.UMI.
func ToRecord(m *MasterMolecule, r ReconstructResult, ref *sam.Reference, umiTag string) (*sam.Record, error) {
	qual := make([]byte, len(m.Quals))
	for i, q := range m.Quals {
		if q > 126-33 {
			q = 126 - 33
		}
		qual[i] = q
	}

	flags := sam.Flags(0)
	if m.Reverse {
		flags = sam.Reverse
	}

	rec, err := sam.NewRecord(m.Key.String(), ref, nil, r.Pos-1, -1, 0, 255, []sam.CigarOp(r.Cigar), m.Bases, qual, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "stitcher: building record for group %s", m.Key)
	}
	rec.Flags = flags

	aux := make([]sam.Aux, 0, 8)
	add := func(tag string, v interface{}) error {
		a, err := sam.NewAux(sam.NewTag(tag), v)
		if err != nil {
			return err
		}
		aux = append(aux, a)
		return nil
	}
	if err := add("NR", m.NR); err != nil {
		return nil, err
	}
	if err := add("ER", m.ER); err != nil {
		return nil, err
	}
	if err := add("IR", m.IR); err != nil {
		return nil, err
	}
	if err := add("BC", m.Key.Cell); err != nil {
		return nil, err
	}
	if err := add("XT", m.Key.Gene); err != nil {
		return nil, err
	}
	if err := add(umiTag, m.Key.UMI); err != nil {
		return nil, err
	}
	if r.Conflict {
		if err := add("NC", r.ConflictCount); err != nil {
			return nil, err
		}
		if err := add("IL", r.ConflictEndpoints); err != nil {
			return nil, err
		}
	}
	rec.AuxFields = aux

	return rec, nil
}
