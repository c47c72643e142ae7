package lesson

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lessondesk/core/sheet"
	"github.com/trezcool/lessondesk/storage/sheets/dummy"
)

var (
	levelTaxonomy = ExtractTaxonomy(levelLedger[0], 2, prefixes)
	levelStudents = []Student{{First: "Ann", Last: "Lee"}, {First: "Bo", Last: "Kim"}}
)

func TestProject(t *testing.T) {
	v := Project("Level 2 Monday 4:00", levelTaxonomy, levelStudents, 2)

	want := sheet.Grid{
		{SelectorLabel, "Level 2 Monday 4:00", "", "", "", "", "", ""},
		{"2 students", "", "", "", "", "", "", ""},
		{"First", "Last", "Att 1", "Att 2", "S1-Float", "End", "SAW-Glide", "End"},
		{"Ann", "Lee", "", "", "", "", "", ""},
		{"Bo", "Kim", "", "", "", "", "", ""},
	}
	if diff := cmp.Diff(want, v.Grid); diff != "" {
		t.Errorf("Project() grid mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []int{2, 3}, v.Layout.Attendance)
	assert.Equal(t, []SkillColumn{
		{Header: "S1-Float", Category: CategoryStage, Col: colFloat, EndCol: colFloatEnd},
		{Header: "SAW-Glide", Category: CategorySupplemental, Col: colGlide, EndCol: colGlideEnd},
	}, v.Layout.Skills)
	assert.Equal(t, []sheet.Band{
		{Kind: sheet.BandIdentity, FromRow: HeaderRow, ToRow: 4, FromCol: 0, ToCol: 1},
		{Kind: sheet.BandAttendance, FromRow: HeaderRow, ToRow: 4, FromCol: 2, ToCol: 3},
		{Kind: sheet.BandStage, FromRow: HeaderRow, ToRow: 4, FromCol: 4, ToCol: 5},
		{Kind: sheet.BandSupplemental, FromRow: HeaderRow, ToRow: 4, FromCol: 6, ToCol: 7},
	}, v.Bands)
}

func TestProject_idempotent(t *testing.T) {
	first := Project("Level 2", levelTaxonomy, levelStudents, 8)
	for i := 0; i < 3; i++ {
		if diff := cmp.Diff(first, Project("Level 2", levelTaxonomy, levelStudents, 8)); diff != "" {
			t.Fatalf("Project() not idempotent (-first +again):\n%s", diff)
		}
	}
}

func TestProject_status(t *testing.T) {
	tests := []struct {
		students []Student
		want     string
	}{
		{want: "No students in this class"},
		{students: levelStudents[:1], want: "1 student"},
		{students: levelStudents, want: "2 students"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			v := Project("Level 2", levelTaxonomy, tt.students, 0)
			assert.Equal(t, tt.want, v.Status)
			assert.Equal(t, tt.want, v.Grid.Get(StatusRow, 0))
			assert.Len(t, v.Grid, FirstStudentRow+len(tt.students))
		})
	}
}

func TestParseLayout(t *testing.T) {
	v := Project("Level 2", levelTaxonomy, levelStudents, 3)
	got := ParseLayout(v.Grid[HeaderRow])

	assert.Equal(t, v.Layout.FirstCol, got.FirstCol)
	assert.Equal(t, v.Layout.LastCol, got.LastCol)
	assert.Equal(t, v.Layout.Attendance, got.Attendance)
	assert.Equal(t, v.Layout.Width, got.Width)
	require.Len(t, got.Skills, 2)
	for i, sc := range got.Skills {
		assert.Equal(t, v.Layout.Skills[i].Header, sc.Header)
		assert.Equal(t, v.Layout.Skills[i].Col, sc.Col)
		assert.Equal(t, v.Layout.Skills[i].EndCol, sc.EndCol)
	}

	lay := ParseLayout([]string{"First", "Last", "End", "S1-Float", "S2-Kick", "End"})
	assert.Equal(t, []SkillColumn{
		{Header: "S1-Float", Col: 3, EndCol: -1},
		{Header: "S2-Kick", Col: 4, EndCol: 5},
	}, lay.Skills)
	_, ok := lay.Skill("S3-Dive")
	assert.False(t, ok)
}

func TestProjector(t *testing.T) {
	ctx := context.Background()
	mem := dummysheet.New()
	writer := sheet.NewBatchWriter(mem, sheet.BatchOptions{ChunkSize: 500}, testLogger(t))
	proj := NewProjector(mem, viewTable, writer, sheet.ResolveCapabilities(mem), testLogger(t))
	classes := []string{"Level 2", "Level 3"}

	t.Run("setup is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			require.NoError(t, proj.Setup(ctx, classes))
		}
		got, err := mem.ReadTable(ctx, viewTable)
		require.NoError(t, err)
		assert.Equal(t, sheet.Grid{{SelectorLabel}, {"Select a class"}}, got)
		assert.Equal(t, classes, mem.List(viewTable, SelectorRow, SelectorCol))
	})

	t.Run("render replaces the whole view", func(t *testing.T) {
		mem.Seed(viewTable, sheet.Grid{{"junk"}, {}, {}, {}, {}, {}, {"more junk"}})
		v := Project("Level 2", levelTaxonomy, levelStudents, 2)
		require.NoError(t, proj.Render(ctx, v, classes))

		got, err := mem.ReadTable(ctx, viewTable)
		require.NoError(t, err)
		if diff := cmp.Diff(v.Grid, got); diff != "" {
			t.Errorf("Render() mismatch (-want +got):\n%s", diff)
		}
		rows, cols := mem.Frozen(viewTable)
		assert.Equal(t, FirstStudentRow, rows)
		assert.Equal(t, 2, cols)
		assert.Equal(t, v.Bands, mem.Bands(viewTable))
	})
}
