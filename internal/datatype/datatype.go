// Package datatype enumerates the closed set of PDB archive data types and
// their rsync sub-paths and filename patterns.
package datatype

import (
	"fmt"
	"path"
	"strings"

	"github.com/pdbsync/pdbsync/internal/fileformat"
	"github.com/pdbsync/pdbsync/internal/pdbid"
)

// DataType is one of the closed set of archive content categories.
type DataType string

const (
	Structures        DataType = "structures"
	Assemblies        DataType = "assemblies"
	BioUnit           DataType = "biounit"
	StructureFactors  DataType = "structure-factors"
	NMRChemicalShifts DataType = "nmr-chemical-shifts"
	NMRRestraints     DataType = "nmr-restraints"
	Obsolete          DataType = "obsolete"
)

// All lists every canonical data type, in a stable order.
var All = []DataType{
	Structures, Assemblies, BioUnit, StructureFactors,
	NMRChemicalShifts, NMRRestraints, Obsolete,
}

// aliases maps a recognized alternate spelling to its canonical DataType.
var aliases = map[string]DataType{
	"st":                Structures,
	"structure":         Structures,
	"asm":               Assemblies,
	"assembly":          Assemblies,
	"bu":                BioUnit,
	"biounit":           BioUnit,
	"sf":                StructureFactors,
	"xray":              StructureFactors,
	"shifts":            NMRChemicalShifts,
	"cs":                NMRChemicalShifts,
	"restraints":        NMRRestraints,
	"nmr-restraints":    NMRRestraints,
	"obs":               Obsolete,
}

// layout describes whether a data type is stored in a divided (middle-hash
// sharded) or flat ("all") directory tree.
type layout int

const (
	divided layout = iota
	flat
)

type descriptor struct {
	subPath string
	layout  layout
	format  fileformat.Format
}

// descriptors pairs each data type with the fileformat.Format its rsync
// sub-path actually distributes; StructureFactors and the NMR data types
// ship reflection/restraint data that isn't one of fileformat's structure
// formats, so they're left without a default and FileName rejects them.
var descriptors = map[DataType]descriptor{
	Structures: {subPath: "structures/divided/mmCIF", layout: divided, format: fileformat.MmCIF},
	Assemblies: {subPath: "assemblies/divided/mmCIF", layout: divided, format: fileformat.MmCIF},
	BioUnit:    {subPath: "biounit/PDB/divided", layout: divided, format: fileformat.PDB},
	StructureFactors:  {subPath: "structures/divided/structure_factors", layout: divided},
	NMRChemicalShifts: {subPath: "structures/divided/nmr_chemical_shifts", layout: divided},
	NMRRestraints:     {subPath: "structures/divided/nmr_restraints", layout: divided},
	Obsolete:          {subPath: "structures/obsolete/mmCIF", layout: flat, format: fileformat.MmCIF},
}

// Resolve canonicalizes a name or alias into a DataType, or reports an error
// if it names nothing recognized.
func Resolve(name string) (DataType, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, d := range All {
		if string(d) == key {
			return d, nil
		}
	}
	if canon, ok := aliases[key]; ok {
		return canon, nil
	}
	return "", fmt.Errorf("datatype: unknown data type %q", name)
}

// RsyncSubPath returns the canonical rsync sub-path for d, relative to a
// mirror's archive root.
func (d DataType) RsyncSubPath() (string, error) {
	desc, ok := descriptors[d]
	if !ok {
		return "", fmt.Errorf("datatype: %q has no rsync sub-path", d)
	}
	return desc.subPath, nil
}

// Divided reports whether d uses the middle-hash sharded directory layout
// (as opposed to a single flat "all" directory).
func (d DataType) Divided() bool {
	desc, ok := descriptors[d]
	return ok && desc.layout == divided
}

// EntryDir returns the directory an entry's files live under, relative to
// the data type's rsync sub-path: the middle-hash shard for divided
// layouts, or "all" for flat layouts.
func (d DataType) EntryDir(id pdbid.ID) string {
	if d.Divided() {
		return id.MiddleHash()
	}
	return "all"
}

// DefaultFormat returns the fileformat.Format d's rsync sub-path
// distributes, or an error for the data types (structure factors, NMR
// chemical shifts, NMR restraints) that carry non-structure content
// outside fileformat's closed set.
func (d DataType) DefaultFormat() (fileformat.Format, error) {
	desc, ok := descriptors[d]
	if !ok || desc.format == "" {
		return "", fmt.Errorf("datatype: %q has no default file format", d)
	}
	return desc.format, nil
}

// FileName builds the full rsync-relative path to id's file under d,
// combining RsyncSubPath/EntryDir with fileformat.Format's canonical
// extension and compression suffix.
func (d DataType) FileName(id pdbid.ID, gz bool) (string, error) {
	format, err := d.DefaultFormat()
	if err != nil {
		return "", err
	}
	name, err := format.FileName(id.String(), gz)
	if err != nil {
		return "", err
	}
	return path.Join(d.mustRsyncSubPath(), d.EntryDir(id), name), nil
}

func (d DataType) mustRsyncSubPath() string {
	// descriptors is exhaustive over DataType's closed set; RsyncSubPath
	// only errors for a value outside it, which FileName's DefaultFormat
	// check above has already ruled out.
	sub, _ := d.RsyncSubPath()
	return sub
}

func (d DataType) String() string { return string(d) }
