// Package schemas embeds the JSON Schemas for untrusted structured input.
package schemas

import (
	"embed"
	"fmt"
)

// Schema file names
const (
	NeedsUpdate   = "needs_update.schema.json"
	MentorCatalog = "mentor_catalog.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Load returns the raw content of an embedded schema.
func Load(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read schema %s: %w", name, err)
	}
	return string(data), nil
}

// Names lists every embedded schema file.
func Names() ([]string, error) {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
