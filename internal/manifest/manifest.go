// Package manifest writes a small per-run diagnostics file,
// "fab-manifest.toml", into the workspace at the end of a build: the run
// label, start time, content-hash digest family, and the steps that ran.
package manifest

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Manifest is the run record serialized to fab-manifest.toml.
type Manifest struct {
	Label       string    `toml:"label"`
	StartedAt   time.Time `toml:"started_at"`
	FinishedAt  time.Time `toml:"finished_at"`
	DigestFamily string   `toml:"digest_family"`
	Steps       []string  `toml:"steps"`
	Failed      bool      `toml:"failed"`
	Error       string    `toml:"error,omitempty"`
}

// New starts a manifest for a run beginning now.
func New(label string) *Manifest {
	return &Manifest{
		Label:        label,
		StartedAt:    time.Now(),
		DigestFamily: "crc32-ieee",
	}
}

// RecordStep appends a completed step's name.
func (m *Manifest) RecordStep(name string) {
	m.Steps = append(m.Steps, name)
}

// Finish marks the manifest as complete, recording failure if err is
// non-nil, and writes it to root/fab-manifest.toml.
func (m *Manifest) Finish(root string, err error) error {
	m.FinishedAt = time.Now()
	if err != nil {
		m.Failed = true
		m.Error = err.Error()
	}

	data, marshalErr := toml.Marshal(m)
	if marshalErr != nil {
		return marshalErr
	}
	return os.WriteFile(filepath.Join(root, "fab-manifest.toml"), data, 0o644)
}
