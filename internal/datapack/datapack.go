// Package datapack installs a zipped model artifact and reference dataset
// into the data directory.
package datapack

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kartoza/house-price-estimator/internal/config"
	"github.com/kartoza/house-price-estimator/internal/dataset"
	"github.com/kartoza/house-price-estimator/internal/logging"
	"github.com/kartoza/house-price-estimator/internal/regressor"
)

// ManifestFile is the optional description at the root of a pack
const ManifestFile = "manifest.json"

// Manifest describes the contents of a data pack zip
type Manifest struct {
	Format      string `json:"format"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Created     string `json:"created"`
	Installed   string `json:"installed,omitempty"`
}

// Files installed from a pack, keyed by base name
var packFiles = map[string]bool{
	ManifestFile:                true,
	config.DefaultModelFile:     true,
	config.DefaultReferenceFile: true,
}

// rename is swapped in tests to fail part way through a commit
var rename = os.Rename

// Install extracts the manifest, model artifact and reference dataset from a
// pack into dataDir. Entries may sit under a single root directory. Both the
// model and the reference dataset are loaded before dataDir is touched, and
// a failed commit restores the files it replaced.
func Install(zipPath, dataDir string) (*Manifest, error) {
	if !strings.HasSuffix(strings.ToLower(zipPath), ".zip") {
		return nil, fmt.Errorf("file must be a .zip archive: %s", zipPath)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("could not open zip: %w", err)
	}
	defer r.Close()

	entries := make(map[string]*zip.File)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// zip names always use forward slashes
		if strings.Contains(f.Name, "..") {
			return nil, fmt.Errorf("illegal file path in zip: %s", f.Name)
		}
		name := path.Base(f.Name)
		if !packFiles[name] {
			continue
		}
		if _, dup := entries[name]; dup {
			return nil, fmt.Errorf("duplicate %s in zip", name)
		}
		entries[name] = f
	}

	for _, required := range []string{config.DefaultModelFile, config.DefaultReferenceFile} {
		if entries[required] == nil {
			return nil, fmt.Errorf("invalid data pack: missing %s", required)
		}
	}

	// staged next to dataDir so the final renames stay on one filesystem
	dataDir = filepath.Clean(dataDir)
	parent := filepath.Dir(dataDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("could not create directory: %w", err)
	}
	staging, err := os.MkdirTemp(parent, ".datapack-")
	if err != nil {
		return nil, fmt.Errorf("could not create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	for name, f := range entries {
		if err := extract(f, filepath.Join(staging, name)); err != nil {
			return nil, err
		}
	}

	if _, err := regressor.Load(filepath.Join(staging, config.DefaultModelFile)); err != nil {
		return nil, fmt.Errorf("invalid data pack: %w", err)
	}
	if _, err := dataset.Load(filepath.Join(staging, config.DefaultReferenceFile)); err != nil {
		return nil, fmt.Errorf("invalid data pack: %w", err)
	}

	manifest := &Manifest{}
	if entries[ManifestFile] != nil {
		data, err := os.ReadFile(filepath.Join(staging, ManifestFile))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, manifest); err != nil {
			return nil, fmt.Errorf("invalid manifest: %w", err)
		}
	}
	manifest.Installed = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(staging, ManifestFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("could not write manifest: %w", err)
	}

	_, statErr := os.Stat(dataDir)
	created := errors.Is(statErr, os.ErrNotExist)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create directory: %w", err)
	}
	if err := commit(staging, dataDir); err != nil {
		if created {
			os.Remove(dataDir)
		}
		return nil, err
	}

	logging.Logger.Infof("Data pack installed into %s", dataDir)
	return manifest, nil
}

// commit moves the staged files into dataDir. Replaced files are kept in
// staging until every rename succeeded and are put back otherwise.
func commit(staging, dataDir string) error {
	backup := filepath.Join(staging, "previous")
	if err := os.Mkdir(backup, 0o755); err != nil {
		return fmt.Errorf("could not create backup directory: %w", err)
	}

	type moved struct {
		name    string
		hadPrev bool
	}
	var done []moved
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			dst := filepath.Join(dataDir, done[i].name)
			os.Remove(dst)
			if done[i].hadPrev {
				if err := rename(filepath.Join(backup, done[i].name), dst); err != nil {
					logging.Logger.Errorf("Could not restore %s: %v", dst, err)
				}
			}
		}
	}

	for _, name := range []string{config.DefaultModelFile, config.DefaultReferenceFile, ManifestFile} {
		dst := filepath.Join(dataDir, name)
		hadPrev := false
		if err := rename(dst, filepath.Join(backup, name)); err == nil {
			hadPrev = true
		} else if !errors.Is(err, os.ErrNotExist) {
			rollback()
			return fmt.Errorf("could not replace %s: %w", name, err)
		}
		done = append(done, moved{name: name, hadPrev: hadPrev})

		if err := rename(filepath.Join(staging, name), dst); err != nil {
			rollback()
			return fmt.Errorf("could not install %s: %w", name, err)
		}
	}
	return nil
}

// ReadManifest returns the manifest of the installed pack, or nil when no
// pack was installed.
func ReadManifest(dataDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

func extract(f *zip.File, dest string) error {
	outFile, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		outFile.Close()
		return fmt.Errorf("could not open zip entry: %w", err)
	}

	_, err = io.Copy(outFile, rc)
	rc.Close()
	if cerr := outFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("could not extract %s: %w", f.Name, err)
	}
	return nil
}
