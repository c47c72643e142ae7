package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func headers(skills []Skill) []string {
	hs := make([]string, 0, len(skills))
	for _, sk := range skills {
		hs = append(hs, sk.Header)
	}
	return hs
}

func TestExtractTaxonomy(t *testing.T) {
	tests := []struct {
		name             string
		header           []string
		offset           int
		wantStage        []string
		wantSupplemental []string
	}{
		{
			name:             "partitions in column order",
			header:           []string{"First", "Last", "S1-Float", "SAW-Glide", "S2-Kick", "SAW-Dive"},
			offset:           2,
			wantStage:        []string{"S1-Float", "S2-Kick"},
			wantSupplemental: []string{"SAW-Glide", "SAW-Dive"},
		},
		{
			name:      "blank and unprefixed headers are skipped",
			header:    []string{"First", "Last", "", "S1-Float", "Repeat", "  ", "Notes"},
			offset:    2,
			wantStage: []string{"S1-Float"},
		},
		{
			name:      "repeated header keeps its first column",
			header:    []string{"First", "Last", "S1-Float", "", "S1-Float"},
			offset:    2,
			wantStage: []string{"S1-Float"},
		},
		{
			name:      "identity columns are not skills even when prefixed",
			header:    []string{"Surname", "Student", "S1-Float"},
			offset:    2,
			wantStage: []string{"S1-Float"},
		},
		{
			name:      "wider identity offset",
			header:    []string{"First", "Last", "S0-Age", "S1-Float"},
			offset:    3,
			wantStage: []string{"S1-Float"},
		},
		{
			name:      "negative offset reads from the first column",
			header:    []string{"S1-Float"},
			offset:    -1,
			wantStage: []string{"S1-Float"},
		},
		{
			name:   "empty header",
			offset: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax := ExtractTaxonomy(tt.header, tt.offset, prefixes)
			assert.Equal(t, tt.wantStage, nilIfEmpty(headers(tax.Stage)))
			assert.Equal(t, tt.wantSupplemental, nilIfEmpty(headers(tax.Supplemental)))
			assert.Equal(t, len(tt.wantStage)+len(tt.wantSupplemental), tax.Len())
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestExtractTaxonomy_deterministic(t *testing.T) {
	header := []string{"First", "Last", "S1-Float", "SAW-Glide", "S2-Kick"}
	first := ExtractTaxonomy(header, 2, prefixes)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ExtractTaxonomy(header, 2, prefixes))
	}

	all := first.All()
	assert.Equal(t, []string{"S1-Float", "S2-Kick", "SAW-Glide"}, headers(all))
	assert.Equal(t, 2, all[0].Index)
	assert.Equal(t, CategorySupplemental, all[2].Category)
}
