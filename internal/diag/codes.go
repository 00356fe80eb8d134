package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Dependency discovery / graph
	DepInfo          Code = 1000
	DepUnresolvedRef Code = 1001
	DepCycle         Code = 1002
	DepLoadError     Code = 1003
	DepSelfReference Code = 1004

	// Template compilation
	TplInfo              Code = 2000
	TplSyntaxError       Code = 2001
	TplUnsupportedTag    Code = 2002
	TplUnresolvedInclude Code = 2003
	TplUnbalancedBlock   Code = 2004

	// Checker findings and checker-boundary failures
	ChkInfo        Code = 3000
	ChkFinding     Code = 3001
	ChkFileError   Code = 3002
	ChkGlobalError Code = 3003
	ChkBadPayload  Code = 3004

	// I/O and configuration
	IOLoadFileError Code = 4001
	CfgInvalid      Code = 4002

	// Internal-consistency violations (always fatal)
	IntInfo              Code = 5000
	IntUnmappableEntry   Code = 5001
	IntMissingUnitMap    Code = 5002
	IntScratchCorrupted  Code = 5003
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	DepInfo:              "Dependency information",
	DepUnresolvedRef:     "Unresolvable template reference",
	DepCycle:             "Template dependency cycle",
	DepLoadError:         "Template load error",
	DepSelfReference:     "Template references itself",
	TplInfo:              "Template information",
	TplSyntaxError:       "Template syntax error",
	TplUnsupportedTag:    "Unsupported template tag",
	TplUnresolvedInclude: "Unresolved include target",
	TplUnbalancedBlock:   "Unbalanced block structure",
	ChkInfo:              "Checker information",
	ChkFinding:           "Checker finding",
	ChkFileError:         "Checker whole-file error",
	ChkGlobalError:       "Checker global error",
	ChkBadPayload:        "Malformed checker payload",
	IOLoadFileError:      "I/O load file error",
	CfgInvalid:           "Invalid configuration",
	IntInfo:              "Internal information",
	IntUnmappableEntry:   "Diagnostic lacks a resolvable source chain",
	IntMissingUnitMap:    "Missing source map for generated unit",
	IntScratchCorrupted:  "Corrupted scratch artifact",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DEP%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TPL%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CHK%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("INT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
