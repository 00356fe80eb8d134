package source

type (
	// FileID uniquely identifies a registered file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a registered file.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (test, generated unit).
	FileVirtual FileFlags = 1 << iota
	// FileGenerated marks a file produced by the pipeline rather than authored.
	FileGenerated
	FileHadBOM
	FileNormalizedCRLF
)

// NoFile is the zero FileID. FileSet never hands it out for real content;
// a Loc with File == NoFile is synthetic.
const NoFile FileID = 0

// File captures metadata and content for a single registered file.
type File struct {
	ID      FileID
	Path    string // canonical, slash-separated
	Content []byte
	LineIdx []uint32
	Flags   FileFlags
}

// Loc is a 1-based line position in a registered file. Immutable value.
type Loc struct {
	File FileID
	Line uint32
}

// IsZero reports whether the location carries no position.
func (l Loc) IsZero() bool {
	return l.File == NoFile && l.Line == 0
}
