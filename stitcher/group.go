package stitcher

// ResolveGene applies the exon/intron gene-assignment rule to one read: a
// junction read (both tags agree) or a read with only one tag assigned
// takes that gene; a read with both tags assigned to different genes is
// dropped (ok=false), and so is a read with neither tag assigned.
func ResolveGene(geneExon, geneIntron string) (gene string, ok bool) {
	exonAssigned := geneExon != "" && geneExon != Unassigned
	intronAssigned := geneIntron != "" && geneIntron != Unassigned

	switch {
	case !exonAssigned && !intronAssigned:
		return "", false
	case exonAssigned && intronAssigned:
		if geneExon == geneIntron {
			return geneExon, true
		}
		return "", false
	case intronAssigned:
		return geneIntron, true
	default:
		return geneExon, true
	}
}

// GroupFilter holds the per-gene-task grouping parameters: which gene this
// task is stitching, whether the input is single-end, and an optional cell
// barcode whitelist (nil means no filtering).
type GroupFilter struct {
	GeneOfInterest string
	SingleEnd      bool
	Cells          map[string]bool // nil: no whitelist
}

// Group buckets raw reads fetched for one gene's region into read groups,
// applying the cell whitelist, UMI-presence, gene-resolution, and
// single-end/paired-end eligibility rules. Groups with no read1 carrying a
// non-empty UMI are dropped entirely (n_read1 gating), matching the
// upstream assembler. The gate applies in single-end mode too, although
// Stitch would let every read of a single-end group vote on strand; in
// paired-end mode such a group has no strand evidence and Stitch would
// reject it. Dropped groups are not reported anywhere.
func Group(raws []RawRead, f GroupFilter) map[GroupKey][]ReadView {
	groups := make(map[GroupKey][]ReadView)
	read1Seen := make(map[GroupKey]bool)

	for _, r := range raws {
		if f.Cells != nil && !f.Cells[r.Cell] {
			continue
		}
		if r.UMI == "" {
			continue
		}
		gene, ok := ResolveGene(r.GeneExon, r.GeneIntron)
		if !ok || gene != f.GeneOfInterest {
			continue
		}
		if r.Unmapped {
			continue
		}
		if !f.SingleEnd && (!r.Paired || r.MateUnmapped || !r.ProperPair) {
			continue
		}

		key := GroupKey{Cell: r.Cell, Gene: gene, UMI: r.UMI}
		groups[key] = append(groups[key], r.Read)
		if r.Read.Read1 && r.UMI != "" {
			read1Seen[key] = true
		}
	}

	for key := range groups {
		if !read1Seen[key] {
			delete(groups, key)
		}
	}
	return groups
}
