package lesson

import (
	"fmt"
	"strings"
)

// Category of a skill, decided by the prefix of its ledger header.
type Category int

const (
	CategoryStage Category = iota
	CategorySupplemental
)

func (c Category) String() string {
	if c == CategorySupplemental {
		return "supplemental"
	}
	return "stage"
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stage":
		*c = CategoryStage
	case "supplemental":
		*c = CategorySupplemental
	default:
		return fmt.Errorf("unknown skill category %q", text)
	}
	return nil
}

// PrefixRule tells stage skill headers from supplemental ones.
// The supplemental prefix is checked first, so it may itself start with the stage prefix.
type PrefixRule struct {
	Stage        string
	Supplemental string
}

func (r PrefixRule) categorize(header string) (Category, bool) {
	switch {
	case r.Supplemental != "" && strings.HasPrefix(header, r.Supplemental):
		return CategorySupplemental, true
	case r.Stage != "" && strings.HasPrefix(header, r.Stage):
		return CategoryStage, true
	default:
		return 0, false
	}
}

// Skill is a ledger column holding marks.
type Skill struct {
	Index    int      `json:"index"`
	Header   string   `json:"header"`
	Category Category `json:"category"`
}

// Taxonomy is the ordered, categorized skill list of a ledger.
type Taxonomy struct {
	Stage        []Skill `json:"stage"`
	Supplemental []Skill `json:"supplemental"`
}

// All returns the stage skills followed by the supplemental skills.
func (t Taxonomy) All() []Skill {
	all := make([]Skill, 0, len(t.Stage)+len(t.Supplemental))
	all = append(all, t.Stage...)
	return append(all, t.Supplemental...)
}

func (t Taxonomy) Len() int {
	return len(t.Stage) + len(t.Supplemental)
}

// ExtractTaxonomy reads the skills out of a ledger header row, from column `offset` on.
// Blank headers and headers matching neither prefix are skipped; a repeated header keeps its first column.
func ExtractTaxonomy(header []string, offset int, rule PrefixRule) Taxonomy {
	var tax Taxonomy
	seen := make(map[string]bool)
	if offset < 0 {
		offset = 0
	}
	for i := offset; i < len(header); i++ {
		h := strings.TrimSpace(header[i])
		if h == "" || seen[h] {
			continue
		}
		cat, ok := rule.categorize(h)
		if !ok {
			continue
		}
		seen[h] = true
		skill := Skill{Index: i, Header: h, Category: cat}
		if cat == CategorySupplemental {
			tax.Supplemental = append(tax.Supplemental, skill)
		} else {
			tax.Stage = append(tax.Stage, skill)
		}
	}
	return tax
}
