package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFile is the name of the schema manifest written next to the index
// directory. Column order in the manifest is the ordinal order and must not
// change after creation.
const ManifestFile = "schema.json"

type manifest struct {
	Name    string   `json:"name"`
	Version uint32   `json:"version"`
	Columns []Column `json:"columns"`
}

// SaveManifest writes the schema manifest into dir atomically (write to a
// temp file in the same directory, then rename).
func SaveManifest(dir string, s *Schema) error {
	data, err := json.MarshalIndent(manifest{
		Name:    s.Name,
		Version: s.Version,
		Columns: s.Columns,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema manifest: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ManifestFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create manifest temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, ManifestFile)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest from dir and revalidates it.
func LoadManifest(dir string) (*Schema, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a manifest payload and revalidates it.
func ParseManifest(data []byte) (*Schema, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse schema manifest: %w", err)
	}
	return New(m.Name, m.Version, m.Columns)
}

// MarshalManifest renders the schema as canonical manifest JSON.
func MarshalManifest(s *Schema) ([]byte, error) {
	return json.Marshal(manifest{Name: s.Name, Version: s.Version, Columns: s.Columns})
}
