package stitcher

import (
	"github.com/biogo/hts/sam"

	"github.com/Clarkvale/stitcher/interval"
)

// GroupKey identifies one read group: every read sharing a cell barcode,
// gene, and UMI is stitched into a single molecule.
type GroupKey struct {
	Cell string
	Gene string
	UMI  string
}

// String renders the key as "gene:cell:umi", the form used in the sidecar
// error log and in the reconstructed record's QNAME.
func (k GroupKey) String() string {
	return k.Gene + ":" + k.Cell + ":" + k.UMI
}

// ReadView is the subset of a BAM record the kernel needs. It is built by
// the caller (encoding/htsio) from a *sam.Record plus its BC/UMI/GE/GI tags;
// the kernel itself never touches a sam.Record.
type ReadView struct {
	Ref      string
	Pos      int // 0-based, as in sam.Record.Pos
	Cigar    sam.Cigar
	Seq      []byte // one byte per base, upper-case ACGTN
	Qual     []byte // Phred scores, one per base of Seq
	Reverse  bool
	Read1    bool
	Exonic   bool // gene tag came from GE (exonic assignment)
	Intronic bool // gene tag came from GI (intronic assignment)
}

// RawRead is a read as read off the input BAM, before grouping and gene
// resolution. Unassigned is the tag value that marks a missing GE/GI
// assignment (pysam's "Unassigned" sentinel, carried over unchanged so
// upstream-produced BAMs need no reprocessing).
type RawRead struct {
	Cell         string
	UMI          string
	GeneExon     string // "" or Unassigned if GE tag absent
	GeneIntron   string // "" or Unassigned if GI tag absent
	Unmapped     bool
	Paired       bool
	MateUnmapped bool
	ProperPair   bool
	Read         ReadView
}

// Unassigned is the GE/GI tag value (or absence sentinel) meaning a read
// was not assigned to any gene by the upstream annotator.
const Unassigned = "Unassigned"

// Footprints describes a molecule's reference span as three interval sets
// relative to the same hull. As produced by Stitch, Skipped may still
// overlap Covered; Reconstruct removes that overlap from Skipped before
// building the CIGAR.
type Footprints struct {
	Covered interval.Set // positions with a called consensus base
	Skipped interval.Set // positions spanned by an N (reference-skip) op
	Deleted interval.Set // hull positions in neither Covered nor Skipped
}

// MasterMolecule is the consensus result of stitching one read group.
type MasterMolecule struct {
	Key     GroupKey
	Ref     string
	Reverse bool // majority-vote strand

	Footprints Footprints

	// Bases and Quals are indexed by dense column position within
	// Footprints.Covered, in the same order as Footprints.Covered.Pairs()
	// enumerates positions ascending.
	Bases []byte
	Quals []byte

	NR int // number of reads in the group
	IR int // number of reads with an intronic (GI) gene assignment
	ER int // number of reads with an exonic (GE) gene assignment
}

// nucleotides is the fixed column order used by the per-column
// log-likelihood accumulator: A, T, C, G.
var nucleotides = [4]byte{'A', 'T', 'C', 'G'}

func nucleotideIndex(b byte) (int, bool) {
	switch b {
	case 'A':
		return 0, true
	case 'T':
		return 1, true
	case 'C':
		return 2, true
	case 'G':
		return 3, true
	default:
		return 0, false
	}
}
