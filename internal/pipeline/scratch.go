package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"tplcheck/internal/source"
)

// Scratch is one run's private directory tree. Each stage owns a distinct
// subtree; units are written once and never rewritten.
type Scratch struct {
	Dir string
}

// NewScratch creates a uniquely named run directory with the per-stage
// subtrees. root defaults to the system temp directory.
func NewScratch(root string) (*Scratch, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "tplcheck-"+uuid.NewString()[:8])
	for _, sub := range []string{"flattened", "injected"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("cannot create scratch dir: %w", err)
		}
	}
	return &Scratch{Dir: dir}, nil
}

// Remove deletes the whole run directory.
func (s *Scratch) Remove() error {
	return os.RemoveAll(s.Dir)
}

// UnitPath names a generated unit file for a template, unique per file id.
func (s *Scratch) UnitPath(stage string, fs *source.FileSet, id source.FileID) string {
	base := strings.TrimSuffix(source.BaseName(fs.Get(id).Path), filepath.Ext(fs.Get(id).Path))
	return filepath.Join(s.Dir, stage, fmt.Sprintf("%s-%d.php", base, id))
}

// sidecar mirrors a unit's source map on disk next to the generated file,
// so a run's artifacts can be inspected or replayed.
type sidecar struct {
	Template uint32           `msgpack:"template"`
	Lines    map[uint32][]loc `msgpack:"lines"`
}

type loc struct {
	File uint32 `msgpack:"file"`
	Line uint32 `msgpack:"line"`
}

// WriteUnit writes generated lines plus the msgpack source-map sidecar.
func (s *Scratch) WriteUnit(path string, lines []string, template source.FileID, chains map[uint32]source.Chain) error {
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}

	sc := sidecar{Template: uint32(template), Lines: make(map[uint32][]loc, len(chains))}
	for line, chain := range chains {
		links := chain.Links()
		recs := make([]loc, len(links))
		for i, l := range links {
			recs[i] = loc{File: uint32(l.File), Line: l.Line}
		}
		sc.Lines[line] = recs
	}
	blob, err := msgpack.Marshal(&sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path+".map.mp", blob, 0o644)
}

// ReadUnitMap loads a sidecar back into chain form.
func ReadUnitMap(path string) (source.FileID, map[uint32]source.Chain, error) {
	blob, err := os.ReadFile(path + ".map.mp") // #nosec G304 -- scratch path built by this run
	if err != nil {
		return source.NoFile, nil, err
	}
	var sc sidecar
	if err := msgpack.Unmarshal(blob, &sc); err != nil {
		return source.NoFile, nil, fmt.Errorf("corrupted source-map sidecar %s: %w", path, err)
	}
	out := make(map[uint32]source.Chain, len(sc.Lines))
	for line, recs := range sc.Lines {
		chain := source.Chain{}
		for _, r := range recs {
			chain = chain.Append(source.Loc{File: source.FileID(r.File), Line: r.Line})
		}
		out[line] = chain
	}
	return source.FileID(sc.Template), out, nil
}
