package source

import (
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet registers template and generated files and resolves canonical
// identifiers: two paths map to the same FileID iff they point at the same
// underlying file after cleaning and symlink resolution.
type FileSet struct {
	files   []File
	index   map[string]FileID // canonical path -> id
	baseDir string
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		// Slot 0 is a placeholder so NoFile never resolves to real content.
		files: make([]File, 1),
		index: make(map[string]FileID),
	}
}

// NewFileSetWithBase creates a FileSet with a base directory for relative paths.
func NewFileSetWithBase(baseDir string) *FileSet {
	fs := NewFileSet()
	fs.baseDir = baseDir
	return fs
}

// BaseDir returns the base directory, falling back to the working directory.
func (fileSet *FileSet) BaseDir() string {
	if fileSet.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return fileSet.baseDir
}

// SetBaseDir sets the base directory used for relative path rendering.
func (fileSet *FileSet) SetBaseDir(dir string) {
	fileSet.baseDir = dir
}

func (fileSet *FileSet) add(canonical string, content []byte, flags FileFlags) FileID {
	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("file count overflow: %w", err))
	}
	id := FileID(lenFiles)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    canonical,
		Content: content,
		LineIdx: buildLineIndex(content),
		Flags:   flags,
	})
	fileSet.index[canonical] = id
	return id
}

// Load reads a file from disk under its canonical identity. Loading the same
// underlying file twice (via symlink, relative path, or repeated reference)
// returns the existing FileID. Canonicalization failure is returned to the
// caller; it is a per-reference problem, not fatal to the set.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	canonical, err := CanonicalPath(path)
	if err != nil {
		return NoFile, fmt.Errorf("cannot resolve %q: %w", path, err)
	}
	if id, ok := fileSet.index[canonical]; ok {
		return id, nil
	}
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(canonical)
	if err != nil {
		return NoFile, err
	}
	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fileSet.add(canonical, content, flags), nil
}

// AddVirtual registers an in-memory file (test fixture or generated unit).
// The name is used verbatim as the canonical path.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	name = normalizePath(name)
	if id, ok := fileSet.index[name]; ok {
		f := &fileSet.files[id]
		f.Content = content
		f.LineIdx = buildLineIndex(content)
		return id
	}
	return fileSet.add(name, content, FileVirtual)
}

// AddGenerated registers a generated unit path so diagnostics referencing it
// can be resolved back through its source map.
func (fileSet *FileSet) AddGenerated(path string, content []byte) FileID {
	path = normalizePath(path)
	if id, ok := fileSet.index[path]; ok {
		f := &fileSet.files[id]
		f.Content = content
		f.LineIdx = buildLineIndex(content)
		return id
	}
	return fileSet.add(path, content, FileVirtual|FileGenerated)
}

// Get returns the file metadata for the given ID, or nil for NoFile.
func (fileSet *FileSet) Get(id FileID) *File {
	if id == NoFile || int(id) >= len(fileSet.files) {
		return nil
	}
	return &fileSet.files[id]
}

// GetByPath returns the file registered under path, if any.
func (fileSet *FileSet) GetByPath(path string) (*File, bool) {
	canonical, err := CanonicalPath(path)
	if err != nil {
		canonical = normalizePath(path)
	}
	if id, ok := fileSet.index[canonical]; ok {
		return &fileSet.files[id], true
	}
	if id, ok := fileSet.index[normalizePath(path)]; ok {
		return &fileSet.files[id], true
	}
	return nil, false
}

// Len returns the number of registered files (placeholder slot excluded).
func (fileSet *FileSet) Len() int {
	return len(fileSet.files) - 1
}

// GetLine returns the 1-based line from the file, without the newline.
// A line number past the end yields the empty string.
func (f *File) GetLine(lineNum uint32) string {
	if f == nil || lineNum == 0 {
		return ""
	}
	lenLineIdx, err := safecast.Conv[uint32](len(f.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}

	var start, end uint32
	switch {
	case lineNum == 1:
		start = 0
	case (lineNum - 2) < lenLineIdx:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}

	if (lineNum - 1) < lenLineIdx {
		end = f.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}

	if start >= lenContent {
		return ""
	}
	if end > lenContent {
		end = lenContent
	}
	return string(f.Content[start:end])
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() uint32 {
	if f == nil || len(f.Content) == 0 {
		return 0
	}
	n, err := safecast.Conv[uint32](len(f.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	if f.Content[len(f.Content)-1] == '\n' {
		return n
	}
	return n + 1
}

// FormatPath renders the file path in the given mode:
// "absolute", "relative", "basename", or "auto".
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := AbsolutePath(f.Path); err == nil {
			return abs
		}
		return f.Path
	case "relative":
		if baseDir == "" {
			if wd, err := os.Getwd(); err == nil {
				baseDir = wd
			}
		}
		if rel, err := RelativePath(f.Path, baseDir); err == nil {
			return rel
		}
		return f.Path
	case "basename":
		return BaseName(f.Path)
	case "auto":
		if len(f.Path) < 40 || !filepath.IsAbs(f.Path) {
			return f.Path
		}
		return BaseName(f.Path)
	default:
		return f.Path
	}
}
