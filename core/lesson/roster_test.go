package lesson

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lessondesk/core/sheet"
	"github.com/trezcool/lessondesk/storage/sheets/dummy"
)

func names(students []Student) []string {
	out := make([]string, 0, len(students))
	for _, st := range students {
		out = append(out, st.Name())
	}
	return out
}

func TestRosterLoader_Load(t *testing.T) {
	ctx := context.Background()
	scheduled := sheet.Grid{
		{"First Name", "Last Name", "Program", "Day", "Time", "Parent"},
		{"Ann", "Lee", "Level 2", "Monday", "4:00", "Jo Lee"},
		{"Bo", "Kim", "Level 2", "Wednesday", "4:00"},
		{"Cy", "Ng", "level 2", "monday", "4:00 "},
		{"", "", "Level 2", "Monday", "4:00"},
		{"ann", " lee", "Level 2", "Monday", "4:00"},
		{"Di", "Fox", "Level 2 Advanced", "Monday", "4:00"},
	}

	tests := []struct {
		name     string
		roster   sheet.Grid
		mode     MatchMode
		selector string
		want     []string
	}{
		{
			name:     "exact on program day and time",
			roster:   scheduled,
			mode:     MatchExact,
			selector: "Level 2 Monday 4:00",
			want:     []string{"Ann Lee", "Cy Ng"},
		},
		{
			name:     "substring on program only",
			roster:   scheduled,
			mode:     MatchSubstring,
			selector: "Level 2 Monday 4:00",
			want:     []string{"Ann Lee", "Bo Kim", "Cy Ng", "Di Fox"},
		},
		{
			name:     "program only roster",
			roster:   levelRoster,
			mode:     MatchExact,
			selector: "Level 2 Monday 4:00",
			want:     []string{"Ann Lee", "Bo Kim"},
		},
		{
			name: "program holding the whole selector",
			roster: sheet.Grid{
				{"First", "Last", "Class"},
				{"Ann", "Lee", "Level 2 Monday 4:00"},
				{"Bo", "Kim", "Level 2 Tuesday 4:00"},
			},
			mode:     MatchExact,
			selector: "Level 2 Monday 4:00",
			want:     []string{"Ann Lee"},
		},
		{
			name:     "no match is not an error",
			roster:   scheduled,
			mode:     MatchExact,
			selector: "Level 9 Friday 9:00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := dummysheet.New()
			mem.Seed(rosterTable, tt.roster)
			class, err := ParseClass(tt.selector)
			require.NoError(t, err)

			got, err := NewRosterLoader(mem, rosterTable, tt.mode, testLogger(t)).Load(ctx, class)
			require.NoError(t, err)
			assert.Equal(t, tt.want, nilIfEmpty(names(got)))
		})
	}

	t.Run("keeps every roster field", func(t *testing.T) {
		mem := dummysheet.New()
		mem.Seed(rosterTable, scheduled)
		class, _ := ParseClass("Level 2 Monday 4:00")
		got, err := NewRosterLoader(mem, rosterTable, MatchExact, testLogger(t)).Load(ctx, class)
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, Student{First: "Ann", Last: "Lee", Program: "Level 2", Day: "Monday", Time: "4:00", Guardian: "Jo Lee"}, got[0])
	})
}

func TestRosterLoader_missingDependencies(t *testing.T) {
	ctx := context.Background()
	class := Class{Program: "Level 2"}

	tests := []struct {
		name       string
		seed       sheet.Grid
		wantColumn string
	}{
		{name: "no roster table"},
		{name: "no first column", seed: sheet.Grid{{"Name", "Last", "Program"}}, wantColumn: "First"},
		{name: "no program column", seed: sheet.Grid{{"First", "Last", "Age"}}, wantColumn: "Program"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := dummysheet.New()
			if tt.seed != nil {
				mem.Seed(rosterTable, tt.seed)
			}
			_, err := NewRosterLoader(mem, rosterTable, MatchExact, testLogger(t)).Load(ctx, class)
			require.Error(t, err)

			var mdErr *MissingDependencyError
			require.ErrorAs(t, err, &mdErr)
			assert.Equal(t, rosterTable, mdErr.Table)
			assert.Equal(t, tt.wantColumn, mdErr.Column)
		})
	}
}

func TestRosterLoader_Classes(t *testing.T) {
	mem := dummysheet.New()
	mem.Seed(rosterTable, sheet.Grid{
		{"First", "Last", "Program", "Day", "Time"},
		{"Ann", "Lee", "Level 2", "monday", "4:00"},
		{"Bo", "Kim", "Level 2", "Wednesday", "4:00"},
		{"Cy", "Ng", "Level 2", "Monday", "4:00"},
		{"Di", "Fox", "", "Monday", "4:00"},
	})

	classes, err := NewRosterLoader(mem, rosterTable, MatchExact, testLogger(t)).Classes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Class{
		{Program: "Level 2", Day: "Monday", Time: "4:00"},
		{Program: "Level 2", Day: "Wednesday", Time: "4:00"},
	}, classes)
}
