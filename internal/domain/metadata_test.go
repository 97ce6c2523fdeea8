package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHeaderLine = "horodate_generated;lane (A, Col de Restefond);direction_1_2 (1: vers col de la Bonette) (2: vers Jausiers);speed"

func TestExtractHeaderMetadata(t *testing.T) {
	meta := ExtractHeaderMetadata(testHeaderLine)

	assert.Equal(t, "Col de Restefond", meta.SiteName.Value)
	assert.False(t, meta.SiteName.Defaulted)
	assert.Equal(t, "vers col de la Bonette", meta.Direction1.Value)
	assert.Equal(t, "vers Jausiers", meta.Direction2.Value)
	assert.True(t, meta.HasDirections())
}

func TestExtractHeaderMetadata_Defaults(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty line", ""},
		{"no metadata columns", "horodate_generated;speed"},
		{"direction without labels", "direction_1_2;lane"},
		{"garbage", ";;;(((;)))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := ExtractHeaderMetadata(tt.line)
			assert.Equal(t, DefaultDirection1, meta.Direction1.Value)
			assert.Equal(t, DefaultDirection2, meta.Direction2.Value)
			assert.True(t, meta.Direction1.Defaulted)
			assert.NotEmpty(t, meta.Direction1.Reason)
			assert.False(t, meta.HasDirections())
		})
	}
}

func TestSiteNameFromLane(t *testing.T) {
	tests := []struct {
		col       string
		want      string
		defaulted bool
	}{
		{"lane (A, Col de la Cayolle)", "Col de la Cayolle", false},
		{"lane (Bonette)", "Bonette", false},
		{"lane", DefaultSiteName, true},
		{"lane ( , )", DefaultSiteName, true},
	}

	for _, tt := range tests {
		t.Run(tt.col, func(t *testing.T) {
			got := siteNameFromLane(tt.col)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.defaulted, got.Defaulted)
		})
	}
}
