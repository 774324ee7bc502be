package manifest

import "fmt"

// Manifest records what one combine produced.
type Manifest struct {
	Name    string            `json:"Name"`
	Output  string            `json:"Output"`
	Chunks  []Chunk           `json:"Chunks"`
	Size    int64             `json:"Size"`
	Digests map[string]string `json:"Digests"`
}

type Chunk struct {
	Index    int    `json:"Index"`
	File     string `json:"File"`
	FileSize int64  `json:"FileSize"`
}

type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
