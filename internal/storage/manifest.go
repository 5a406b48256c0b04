package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Manifest records how a trial was produced.
type Manifest struct {
	ID          string         `yaml:"id"`
	Sim         string         `yaml:"sim"`
	SimDir      string         `yaml:"sim_dir"`
	Trial       int            `yaml:"trial"`
	Seed        int64          `yaml:"seed"`
	Test        bool           `yaml:"test"`
	Debug       bool           `yaml:"debug"`
	Created     time.Time      `yaml:"created"`
	Description string         `yaml:"description,omitempty"`
	Params      map[string]any `yaml:"params"`
}

func NewRunID() string {
	return uuid.NewString()
}

func SaveManifest(simPath string, m *Manifest) error {
	path := filepath.Join(simPath, ManifestFile)
	data, err := yaml.Marshal(m)
	if err != nil {
		return &StorageError{Op: "encode manifest", Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StorageError{Op: "write manifest", Path: path, Err: err}
	}
	return nil
}

func LoadManifest(simPath string) (*Manifest, error) {
	path := filepath.Join(simPath, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Op: "read manifest", Path: path, Err: err}
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &StorageError{Op: "decode manifest", Path: path, Err: err}
	}
	return &m, nil
}

// Manifests loads the manifest of every trial under simDir, ordered by trial.
// Trials without a readable manifest are skipped.
func (s *Store) Manifests(simDir string, test bool) ([]Manifest, error) {
	trials, err := s.Trials(simDir, test)
	if err != nil {
		return nil, err
	}

	runs := make([]Manifest, 0, len(trials))
	for _, trial := range trials {
		m, err := LoadManifest(SimPath(s.baseDir, simDir, trial, test))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			var serr *StorageError
			if errors.As(err, &serr) && serr.Op == "decode manifest" {
				continue
			}
			return nil, err
		}
		runs = append(runs, *m)
	}
	return runs, nil
}

// SimDirs lists the simulation families under the data location.
func (s *Store) SimDirs() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, &StorageError{Op: "list sim dirs", Path: s.baseDir, Err: err}
	}
	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}
