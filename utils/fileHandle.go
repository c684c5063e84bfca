package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SaveFile copies src into destDir/name. The content goes to a temp file in
// destDir first and is renamed into place, so readers of destDir never see a
// partially written file.
func SaveFile(destDir, name string, src io.Reader) (string, error) {
	// Create destination directory if it doesn't exist
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating directory %s", destDir)
	}

	tmp, err := os.CreateTemp(destDir, ".download-*")
	if err != nil {
		return "", errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", errors.Wrapf(err, "writing %s", name)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrapf(err, "writing %s", name)
	}

	filePath := filepath.Join(destDir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return "", errors.Wrapf(err, "saving %s", name)
	}
	return filePath, nil
}
