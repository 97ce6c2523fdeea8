package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// SiteMetadata is the sidecar written next to a snapshot when direction
// labels were extracted from the source headers.
type SiteMetadata struct {
	SiteName   string `json:"site_name"`
	Direction1 string `json:"direction_1"`
	Direction2 string `json:"direction_2"`
}

// Sidecars reads and writes metadata_<site>.json files in a directory.
type Sidecars struct {
	dir string
}

func NewSidecars(dir string) *Sidecars {
	return &Sidecars{dir: dir}
}

func (s *Sidecars) Path(siteID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("metadata_%s.json", siteID))
}

// Read returns the site's sidecar. ok is false when no sidecar exists.
func (s *Sidecars) Read(siteID string) (meta SiteMetadata, ok bool, err error) {
	data, err := os.ReadFile(s.Path(siteID))
	if errors.Is(err, fs.ErrNotExist) {
		return SiteMetadata{}, false, nil
	}
	if err != nil {
		return SiteMetadata{}, false, fmt.Errorf("read metadata sidecar: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return SiteMetadata{}, false, fmt.Errorf("decode metadata sidecar: %w", err)
	}
	return meta, true, nil
}

// Write replaces the site's sidecar.
func (s *Sidecars) Write(siteID string, meta SiteMetadata) error {
	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("encode metadata sidecar: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	if err := os.WriteFile(s.Path(siteID), data, 0o644); err != nil {
		return fmt.Errorf("write metadata sidecar: %w", err)
	}
	return nil
}

// Apply overlays the sidecar's non-empty direction labels onto m.
func (meta SiteMetadata) Apply(m domain.Metadata) domain.Metadata {
	if meta.Direction1 != "" {
		m.Direction1 = meta.Direction1
	}
	if meta.Direction2 != "" {
		m.Direction2 = meta.Direction2
	}
	return m
}
