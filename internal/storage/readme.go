package storage

import (
	"os"
	"path/filepath"
)

// NoDescription is written when the run has no description.
const NoDescription = "No description provided."

// WriteReadme replaces README.txt under simPath with description verbatim.
func WriteReadme(simPath, description string) error {
	path := filepath.Join(simPath, ReadmeFile)
	if err := os.WriteFile(path, []byte(description), 0644); err != nil {
		return &StorageError{Op: "write readme", Path: path, Err: err}
	}
	return nil
}

func ReadReadme(simPath string) (string, error) {
	path := filepath.Join(simPath, ReadmeFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &StorageError{Op: "read readme", Path: path, Err: err}
	}
	return string(data), nil
}
