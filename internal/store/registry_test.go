package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

const sitesJSON = `[
  {"id": "bonette", "name": "Col de la Bonette", "type": "routier", "keywords": ["bonette"], "coords": [44.32, 6.80]},
  {"id": "jausiers", "name": "Jausiers", "type": "pieton"},
  {"id": "../etc", "name": "Escape", "type": "road"},
  {"id": "tram", "name": "Tram", "type": "tram"},
  {"id": "nocoords", "name": "Bad coords", "type": "road", "coords": [1]},
  {"id": "bonette", "name": "Duplicate", "type": "road"},
  {"name": "No id", "type": "road"}
]`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRegistry_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.json")
	writeFile(t, path, sitesJSON)

	sites, rejected, err := NewRegistry(path).Load()
	require.NoError(t, err)

	require.Len(t, sites, 2)
	assert.Equal(t, "bonette", sites[0].ID)
	assert.Equal(t, domain.SiteRoad, sites[0].Kind())
	assert.InDelta(t, 44.32, sites[0].Lat(), 1e-9)
	assert.Equal(t, domain.SitePedestrian, sites[1].Kind())
	assert.Len(t, rejected, 5)
	assert.Contains(t, rejected[0], "ID failed siteid")
	assert.Contains(t, rejected[1], "Type failed sitetype")
	assert.Contains(t, rejected[3], "duplicate id")
}

func TestRegistry_LoadMissing(t *testing.T) {
	sites, rejected, err := NewRegistry(filepath.Join(t.TempDir(), "sites.json")).Load()

	require.NoError(t, err)
	assert.Empty(t, sites)
	assert.Empty(t, rejected)
}

func TestRegistry_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.json")
	writeFile(t, path, `{"id": "not a list"`)

	_, _, err := NewRegistry(path).Load()

	require.Error(t, err)
}

func TestRegistry_ImportRegistry(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "data", "sites.json")
	reg := NewRegistry(dst)

	imported, err := reg.ImportRegistry(src)
	require.NoError(t, err)
	assert.False(t, imported)

	writeFile(t, filepath.Join(src, "sites.json"), sitesJSON)
	imported, err = reg.ImportRegistry(src)
	require.NoError(t, err)
	assert.True(t, imported)

	sites, _, err := reg.Load()
	require.NoError(t, err)
	assert.Len(t, sites, 2)
}

func TestSidecars(t *testing.T) {
	s := NewSidecars(t.TempDir())

	_, ok, err := s.Read("bonette")
	require.NoError(t, err)
	assert.False(t, ok)

	want := SiteMetadata{SiteName: "Col de la Bonette", Direction1: "vers Bonette", Direction2: "vers Jausiers"}
	require.NoError(t, s.Write("bonette", want))

	got, ok, err := s.Read("bonette")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(s.Path("bonette"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n    \"direction_1\": \"vers Bonette\"")
}

func TestSidecars_Malformed(t *testing.T) {
	s := NewSidecars(t.TempDir())
	writeFile(t, s.Path("bonette"), "{")

	_, _, err := s.Read("bonette")

	require.Error(t, err)
}

func TestSiteMetadata_Apply(t *testing.T) {
	base := domain.Metadata{SiteName: "Bonette", Direction1: "Sens 1", Direction2: "Sens 2"}

	got := SiteMetadata{Direction1: "vers Bonette"}.Apply(base)

	assert.Equal(t, "vers Bonette", got.Direction1)
	assert.Equal(t, "Sens 2", got.Direction2)
	assert.Equal(t, "Bonette", got.SiteName)
}
