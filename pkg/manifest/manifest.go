package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"chunk-combiner/pkg/chunk"
)

// Build describes the chunks of set and the digests of res.
func Build(set *chunk.Set, res *chunk.Result) *Manifest {
	m := &Manifest{
		Name:    filepath.Base(res.Output),
		Output:  res.Output,
		Chunks:  make([]Chunk, 0, len(set.Chunks)),
		Size:    res.Size,
		Digests: make(map[string]string, len(res.Digests)),
	}
	for i, c := range set.Chunks {
		m.Chunks = append(m.Chunks, Chunk{
			Index:    i + 1,
			File:     c.Name,
			FileSize: c.Size,
		})
	}
	for _, d := range res.Digests {
		m.Digests[d.Name] = d.Hex
	}
	return m
}

// Summary is a one-line human description.
func (m *Manifest) Summary() string {
	return fmt.Sprintf("%s: %s chunks, %s", m.Name, humanize.Comma(int64(len(m.Chunks))), humanize.IBytes(uint64(m.Size)))
}

func Write(m *Manifest, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &m, nil
}
