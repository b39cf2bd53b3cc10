package chat

import (
	"errors"
	"io/fs"
	"os"
)

// Model status values reported by GET /api/models.
const (
	StatusDevelopment = "development"
	StatusReady       = "ready"
)

// checkpointMagic prefixes a valid serialized weights file.
var checkpointMagic = []byte("DIEAI\x00")

// ErrCheckpointUnavailable reports that no trained weights are loaded.
var ErrCheckpointUnavailable = errors.New("model checkpoint unavailable")

// Checkpoint describes the transformer weights file on disk.
// The shipped checkpoint is an empty placeholder, so Ready is false in
// every deployment to date and chat requests never reach the model.
type Checkpoint struct {
	Path  string
	Size  int64
	Ready bool
}

// LoadCheckpoint inspects the checkpoint file at path.
// A missing or empty file is not an error: it yields a checkpoint in
// development status.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	ckpt := &Checkpoint{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ckpt, nil
		}
		return nil, err
	}
	ckpt.Size = info.Size()

	if ckpt.Size < int64(len(checkpointMagic)) {
		return ckpt, nil
	}

	header := make([]byte, len(checkpointMagic))
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Read(header); err != nil {
		return ckpt, nil //nolint:nilerr
	}

	ckpt.Ready = string(header) == string(checkpointMagic)
	return ckpt, nil
}

// Status returns the model status string for the models endpoint.
func (c *Checkpoint) Status() string {
	if c != nil && c.Ready {
		return StatusReady
	}
	return StatusDevelopment
}

// Generate would run transformer inference. Without trained weights it
// always fails, and callers fall through to the rule-based pipeline.
func (c *Checkpoint) Generate(prompt string) (string, error) {
	if c == nil || !c.Ready {
		return "", ErrCheckpointUnavailable
	}
	// Weights loading and inference are not implemented; no trained
	// checkpoint has ever been produced.
	return "", ErrCheckpointUnavailable
}
