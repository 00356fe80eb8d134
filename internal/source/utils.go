package source

import (
	"path/filepath"
	"slices"
)

// normalizeCRLF replaces every \r\n with \n, leaving lone \r untouched.
// Returns the (possibly new) slice and whether any replacement happened.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if !slices.Contains(content, '\r') {
		return content, false
	}

	out := make([]byte, 0, len(content))
	changed := false

	i := 0
	for i < len(content) {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			out = append(out, '\n')
			i += 2
			changed = true
		} else {
			out = append(out, content[i])
			i++
		}
	}
	return out, changed
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) < 3 {
		return content, false
	}
	if content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}
	return content, false
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, len(content)/32)
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i)) // #nosec G115 -- content fits uint32 by construction
		}
	}
	return out
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// CanonicalPath resolves path to its canonical slash-separated absolute form,
// following symlinks so that aliases of the same file compare equal.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	} else {
		// The file may not exist yet (generated units); canonicalize the
		// parent directory instead and keep the final element.
		dir, base := filepath.Split(abs)
		if resolvedDir, dirErr := filepath.EvalSymlinks(filepath.Clean(dir)); dirErr == nil {
			abs = filepath.Join(resolvedDir, base)
		}
	}
	return filepath.ToSlash(abs), nil
}

// AbsolutePath converts a path to its absolute form.
func AbsolutePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}

// RelativePath renders path relative to baseDir, POSIX-style.
func RelativePath(path, baseDir string) (string, error) {
	rel, err := filepath.Rel(filepath.FromSlash(baseDir), filepath.FromSlash(path))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// BaseName returns the final path element.
func BaseName(path string) string {
	return filepath.Base(filepath.FromSlash(path))
}
