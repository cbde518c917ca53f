package report

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/spikefang/pkg/persist"
)

const storeDirPerm = 0o755

// Store archives reports on disk for later comparison.
type Store struct {
	dir   string
	codec persist.Codec
}

// NewStore returns a store writing under dir. Compressed stores pack
// reports as LZ4 frames.
func NewStore(dir string, compressed bool) *Store {
	var codec persist.Codec = persist.NewJSONCodec()
	if compressed {
		codec = persist.NewLZ4Codec()
	}

	return &Store{dir: dir, codec: codec}
}

// Save archives the report under name.
func (s *Store) Save(name string, r *Report) error {
	if err := os.MkdirAll(s.dir, storeDirPerm); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	return persist.SaveState(s.dir, name, s.codec, r)
}

// Load reads a previously archived report.
func (s *Store) Load(name string) (*Report, error) {
	var r Report
	if err := persist.LoadState(s.dir, name, s.codec, &r); err != nil {
		return nil, err
	}

	return &r, nil
}
