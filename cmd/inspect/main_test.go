package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

func writeExport(t *testing.T, content string) string {
	t.Helper()
	data, err := charmap.ISO8859_1.NewEncoder().String(content)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestRun_RoadExport(t *testing.T) {
	path := writeExport(t, `horodate_generated;lane (A, Col de la Bonette);direction_1_2 (1: vers Bonette) (2: vers Jausiers);categorySterela_label;category1
2023-06-12 08:15:00;A;1;Vélo;
2023-06-12 09:30:00;A;2;;1
2023-06-12 09:45:00;A;2;;13
`)

	var out bytes.Buffer
	code := run(&out, path, domain.SiteRoad, time.UTC)

	assert.Equal(t, 0, code, out.String())
	s := out.String()
	assert.Contains(t, s, "Datetime")
	assert.Contains(t, s, "Col de la Bonette")
	assert.Contains(t, s, "vers Jausiers")
	assert.Contains(t, s, "Rows: 3 read, 3 kept, 0 malformed, 0 bad timestamps")
	assert.Contains(t, s, "Dates: 2023-06-12 to 2023-06-12")
	assert.Contains(t, s, "Autre    1 (dropped)")
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    domain.SiteType
		want    string
	}{
		{
			name:    "no timestamp column",
			content: "date;speed\n2023-06-12;50\n",
			kind:    domain.SitePedestrian,
			want:    "no timestamp column",
		},
		{
			name:    "road export without directions",
			content: "horodate_generated;category1\n2023-06-12 08:00:00;1\n",
			kind:    domain.SiteRoad,
			want:    "direction labels missing",
		},
		{
			name:    "bad timestamps",
			content: "horodate_generated;comptage\nyesterday;4\n2023-06-12 08:00:00;3\n",
			kind:    domain.SitePedestrian,
			want:    "1 rows have an unparseable timestamp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			code := run(&out, writeExport(t, tt.content), tt.kind, time.UTC)

			assert.Equal(t, 1, code)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestRun_MissingFile(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, filepath.Join(t.TempDir(), "missing.csv"), domain.SiteRoad, time.UTC)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "FATAL")
}
