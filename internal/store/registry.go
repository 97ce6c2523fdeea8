package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// Registry loads the static site list and validates each entry.
type Registry struct {
	path     string
	validate *validator.Validate
}

// NewRegistry creates a registry backed by the JSON file at path.
func NewRegistry(path string) *Registry {
	v := validator.New()
	v.RegisterValidation("siteid", isSiteID)     //nolint:errcheck // tag names are constant
	v.RegisterValidation("sitetype", isSiteType) //nolint:errcheck // tag names are constant
	return &Registry{path: path, validate: v}
}

func (r *Registry) Path() string { return r.path }

// Load returns the valid sites of the registry, in file order, along with a
// description of every rejected entry. A missing file yields no sites and no
// error; an unreadable or malformed file yields an error.
func (r *Registry) Load() (sites []domain.Site, rejected []string, err error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read site registry: %w", err)
	}

	var raw []domain.Site
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode site registry: %w", err)
	}

	seen := make(map[string]bool, len(raw))
	for i, s := range raw {
		if err := r.validate.Struct(s); err != nil {
			rejected = append(rejected, fmt.Sprintf("entry %d (%q): %s", i, s.ID, describe(err)))
			continue
		}
		if seen[s.ID] {
			rejected = append(rejected, fmt.Sprintf("entry %d (%q): duplicate id", i, s.ID))
			continue
		}
		seen[s.ID] = true
		sites = append(sites, s)
	}
	return sites, rejected, nil
}

// ImportRegistry copies sites.json from srcDir over the registry file. It
// reports false when srcDir holds no sites.json.
func (r *Registry) ImportRegistry(srcDir string) (bool, error) {
	src, err := os.Open(filepath.Join(srcDir, "sites.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open source registry: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return false, fmt.Errorf("create registry dir: %w", err)
	}
	dst, err := os.Create(r.path)
	if err != nil {
		return false, fmt.Errorf("create registry: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return false, fmt.Errorf("copy registry: %w", err)
	}
	if err := dst.Close(); err != nil {
		return false, fmt.Errorf("close registry: %w", err)
	}
	return true, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, ", ")
}

// isSiteID rejects ids that could escape the source or cache directories.
func isSiteID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func isSiteType(fl validator.FieldLevel) bool {
	_, ok := domain.ParseSiteType(fl.Field().String())
	return ok
}
