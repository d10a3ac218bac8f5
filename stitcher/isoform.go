package stitcher

import (
	"sort"
	"strings"

	"github.com/biogo/hts/sam"

	"github.com/Clarkvale/stitcher/interval"
	"github.com/Clarkvale/stitcher/isoformdb"
)

// junctionPairs returns, for every N op in the reconstructed CIGAR, the pair
// (end of the covered block before the skip, start of the covered block
// after it) — the splice-junction boundary the molecule's alignment
// implies, walked directly off the final CIGAR so it reflects the
// post-conflict-resolution skip set.
func junctionPairs(pos int, cigar sam.Cigar) []interval.Pair {
	var pairs []interval.Pair
	ref := pos - 1 // 0-based, matches the covered-column convention
	for _, op := range cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarSkipped:
			pairs = append(pairs, interval.Pair{Lo: ref - 1, Hi: ref + n})
			ref += n
		default:
			con := op.Type().Consumes()
			ref += n * con.Reference
		}
	}
	return pairs
}

// Resolve computes the compatible isoform set for m's reconstructed
// alignment against the exonic-coverage and splice-junction indices. It
// returns ok=false whenever the upstream resolver would have silently
// dropped the CT tag: a gene unknown to the exon index, an empty exon
// lookup, or an empty final intersection. A molecule with no junctions, or
// whose gene is unknown to the junction index, is resolved from the exon
// lookup alone.
func Resolve(m *MasterMolecule, r ReconstructResult, exonIdx, junctionIdx isoformdb.Dictionary) (compatible []string, ok bool) {
	covSets, known := exonIdx.Query(m.Key.Gene, m.Footprints.Covered)
	if !known || len(covSets) == 0 {
		return nil, false
	}
	covSets = stripIntronicIfOthers(covSets)

	junPairs := junctionPairs(r.Pos, r.Cigar)
	var junSets []map[string]struct{}
	if len(junPairs) > 0 {
		junction := interval.FromPairs(junPairs)
		sets, known := junctionIdx.Query(m.Key.Gene, junction)
		if known {
			junSets = stripIntronicIfOthers(sets)
		}
	}

	result := intersectAll(covSets)
	if result == nil {
		return nil, false
	}
	if len(junSets) > 0 {
		junResult := intersectAll(junSets)
		if junResult == nil {
			return nil, false
		}
		result = intersectSet(result, junResult)
	}
	if len(result) == 0 {
		return nil, false
	}

	out := make([]string, 0, len(result))
	for iso := range result {
		out = append(out, iso)
	}
	sort.Strings(out)
	return out, true
}

func stripIntronicIfOthers(sets []map[string]struct{}) []map[string]struct{} {
	if len(sets) <= 1 {
		return sets
	}
	out := make([]map[string]struct{}, 0, len(sets))
	for _, s := range sets {
		if isIntronicOnly(s) {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return sets
	}
	return out
}

func isIntronicOnly(s map[string]struct{}) bool {
	if len(s) != 1 {
		return false
	}
	_, ok := s[isoformdb.IntronicSentinel]
	return ok
}

func intersectAll(sets []map[string]struct{}) map[string]struct{} {
	if len(sets) == 0 {
		return nil
	}
	result := make(map[string]struct{}, len(sets[0]))
	for k := range sets[0] {
		result[k] = struct{}{}
	}
	for _, s := range sets[1:] {
		result = intersectSet(result, s)
	}
	return result
}

func intersectSet(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// JoinCompatible renders a compatible-isoform list as the comma-joined CT
// tag value.
func JoinCompatible(compatible []string) string {
	return strings.Join(compatible, ",")
}
