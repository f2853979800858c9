package descriptor

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/specialistvlad/extforge/internal/coords"
)

// Find locates the descriptor of a packaged artifact. A missing artifact
// file, a missing descriptor, or a non-jar file all mean "not an extension"
// and yield (nil, nil). Unreadable files are errors.
func Find(artifactPath, artifactType string) (*Descriptor, error) {
	info, err := os.Stat(artifactPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access artifact %s: %w", artifactPath, err)
	}

	if info.IsDir() {
		return FindInDir(artifactPath)
	}
	if artifactType == "" || artifactType == coords.TypeJar {
		return FindInArchive(artifactPath)
	}
	return nil, nil
}

// FindInDir looks for the descriptor below an exploded artifact or a
// resources directory.
func FindInDir(dir string) (*Descriptor, error) {
	path := filepath.Join(dir, filepath.FromSlash(Path))
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access extension descriptor %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	return LoadFile(path)
}

// LoadFile reads and parses a descriptor file.
func LoadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load extension descriptor at %s: %w", path, err)
	}
	return Parse(data, path)
}

// FindInArchive opens a zip-format archive and reads the descriptor entry.
func FindInArchive(archivePath string) (*Descriptor, error) {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", archivePath, err)
	}
	defer rc.Close()

	data, err := fs.ReadFile(&rc.Reader, Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s from %s: %w", Path, archivePath, err)
	}
	return Parse(data, archivePath+"!/"+Path)
}
