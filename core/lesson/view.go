package lesson

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/sheet"
)

// Working view layout
const (
	SelectorRow      = 0
	SelectorLabelCol = 0
	SelectorCol      = 1
	StatusRow        = 1
	HeaderRow        = 2
	FirstStudentRow  = 3

	SelectorLabel = "Class:"
	FirstHeader   = "First"
	LastHeader    = "Last"
	EndHeader     = "End"

	identityCols = 2
)

var attendanceHeaderRegex = regexp.MustCompile(`^Att \d+$`)

func AttendanceHeader(i int) string {
	return fmt.Sprintf("Att %d", i+1)
}

// SkillColumn places a skill in the working view.
type SkillColumn struct {
	Header   string   `json:"header"`
	Category Category `json:"category"`
	Col      int      `json:"col"`
	EndCol   int      `json:"end_col"` // -1 when the skill has no End column
}

// Layout is the column layout of a working view:
// [First, Last][Att 1..N][stage skill, End]...[supplemental skill, End]...
type Layout struct {
	FirstCol   int           `json:"first_col"`
	LastCol    int           `json:"last_col"`
	Attendance []int         `json:"attendance"`
	Skills     []SkillColumn `json:"skills"`
	Width      int           `json:"width"`
}

// Skill returns the column of the skill whose header is `header`.
func (lay Layout) Skill(header string) (SkillColumn, bool) {
	header = strings.TrimSpace(header)
	for _, sc := range lay.Skills {
		if sc.Header == header {
			return sc, true
		}
	}
	return SkillColumn{}, false
}

// ParseLayout reads the layout of a rendered view back from its header row.
// Skill categories are not recoverable from the header and are left as stage.
func ParseLayout(header []string) Layout {
	lay := Layout{FirstCol: -1, LastCol: -1, Width: len(header)}
	for c := 0; c < len(header); c++ {
		h := strings.TrimSpace(header[c])
		switch {
		case h == "":
		case h == FirstHeader && lay.FirstCol < 0:
			lay.FirstCol = c
		case h == LastHeader && lay.LastCol < 0:
			lay.LastCol = c
		case attendanceHeaderRegex.MatchString(h):
			lay.Attendance = append(lay.Attendance, c)
		case h == EndHeader:
			// stray End column, not attached to a skill
		default:
			sc := SkillColumn{Header: h, Col: c, EndCol: -1}
			if c+1 < len(header) && strings.TrimSpace(header[c+1]) == EndHeader {
				sc.EndCol = c + 1
				c++
			}
			lay.Skills = append(lay.Skills, sc)
		}
	}
	return lay
}

// View is a projected working view.
type View struct {
	Class    string       `json:"class"`
	Status   string       `json:"status"`
	Grid     sheet.Grid   `json:"grid"`
	Layout   Layout       `json:"layout"`
	Bands    []sheet.Band `json:"bands"`
	Students []Student    `json:"students"`
}

// StudentRow returns the view row of the i-th student.
func StudentRow(i int) int {
	return FirstStudentRow + i
}

// Project builds the working view of `class`. It only depends on its arguments:
// the same taxonomy and students always give the same grid.
func Project(class string, tax Taxonomy, students []Student, attendance int) View {
	if attendance < 0 {
		attendance = 0
	}
	lay := Layout{FirstCol: 0, LastCol: 1}
	header := []string{FirstHeader, LastHeader}
	var bands []sheet.Band
	lastRow := HeaderRow + len(students)

	addBand := func(kind sheet.BandKind, from int) {
		if to := len(header) - 1; to >= from {
			bands = append(bands, sheet.Band{Kind: kind, FromRow: HeaderRow, ToRow: lastRow, FromCol: from, ToCol: to})
		}
	}
	addBand(sheet.BandIdentity, 0)

	from := len(header)
	for i := 0; i < attendance; i++ {
		lay.Attendance = append(lay.Attendance, len(header))
		header = append(header, AttendanceHeader(i))
	}
	addBand(sheet.BandAttendance, from)

	addSkills := func(skills []Skill, kind sheet.BandKind) {
		from := len(header)
		for _, sk := range skills {
			lay.Skills = append(lay.Skills, SkillColumn{
				Header:   sk.Header,
				Category: sk.Category,
				Col:      len(header),
				EndCol:   len(header) + 1,
			})
			header = append(header, sk.Header, EndHeader)
		}
		addBand(kind, from)
	}
	addSkills(tax.Stage, sheet.BandStage)
	addSkills(tax.Supplemental, sheet.BandSupplemental)
	lay.Width = len(header)

	status := fmt.Sprintf("%d students", len(students))
	switch len(students) {
	case 0:
		status = "No students in this class"
	case 1:
		status = "1 student"
	}

	width := lay.Width
	if width < SelectorCol+1 {
		width = SelectorCol + 1
	}
	grid := sheet.NewGrid(FirstStudentRow+len(students), width)
	grid[SelectorRow][SelectorLabelCol] = SelectorLabel
	grid[SelectorRow][SelectorCol] = class
	grid[StatusRow][0] = status
	copy(grid[HeaderRow], header)
	for i, st := range students {
		row := grid[StudentRow(i)]
		row[lay.FirstCol] = st.First
		row[lay.LastCol] = st.Last
	}

	return View{
		Class:    class,
		Status:   status,
		Grid:     grid,
		Layout:   lay,
		Bands:    bands,
		Students: append([]Student(nil), students...),
	}
}

// Projector writes projected views to the working view table.
type Projector struct {
	store  sheet.Store
	table  string
	writer *sheet.BatchWriter
	caps   sheet.Capabilities
	logger core.Logger
}

func NewProjector(store sheet.Store, table string, writer *sheet.BatchWriter, caps sheet.Capabilities, logger core.Logger) *Projector {
	return &Projector{store: store, table: table, writer: writer, caps: caps, logger: logger}
}

func (p *Projector) ensureTable(ctx context.Context) (bool, error) {
	exists, err := p.store.HasTable(ctx, p.table)
	if err != nil {
		return false, errors.Wrapf(err, "checking %q", p.table)
	}
	if exists {
		return false, nil
	}
	if err = p.store.CreateTable(ctx, p.table); err != nil {
		return false, errors.Wrapf(err, "creating %q", p.table)
	}
	return true, nil
}

// Render replaces the whole content of the view table with `v`.
// `classes` feeds the selector drop-down.
func (p *Projector) Render(ctx context.Context, v View, classes []string) error {
	if _, err := p.ensureTable(ctx); err != nil {
		return err
	}
	if err := p.store.ClearTable(ctx, p.table); err != nil {
		return errors.Wrapf(err, "clearing %q", p.table)
	}
	if _, err := p.writer.WriteRows(ctx, p.table, 0, v.Grid); err != nil {
		return errors.Wrapf(err, "writing %q", p.table)
	}
	p.decorate(ctx, FirstStudentRow, identityCols, v.Bands, classes)
	return nil
}

// Setup makes sure the view table exists with its selector. It is safe to call any number of times.
func (p *Projector) Setup(ctx context.Context, classes []string) error {
	created, err := p.ensureTable(ctx)
	if err != nil {
		return err
	}
	label, err := p.store.ReadCell(ctx, p.table, SelectorRow, SelectorLabelCol)
	if err != nil {
		return errors.Wrapf(err, "reading %q selector", p.table)
	}
	if created || label != SelectorLabel {
		cells := []sheet.CellUpdate{{Row: SelectorRow, Col: SelectorLabelCol, Value: SelectorLabel}}
		if created {
			cells = append(cells, sheet.CellUpdate{Row: StatusRow, Col: 0, Value: "Select a class"})
		}
		if err = p.store.WriteCells(ctx, p.table, cells); err != nil {
			return errors.Wrapf(err, "writing %q selector", p.table)
		}
	}
	p.decorate(ctx, FirstStudentRow, identityCols, nil, classes)
	return nil
}

// decorate applies the optional, purely visual, capabilities. Failures are logged only.
func (p *Projector) decorate(ctx context.Context, frozenRows, frozenCols int, bands []sheet.Band, classes []string) {
	if err := p.caps.Freezer.Freeze(ctx, p.table, frozenRows, frozenCols); err != nil {
		p.logger.Warn(fmt.Sprintf("view: freezing %q", p.table), err)
	}
	for _, band := range bands {
		if err := p.caps.Styler.StyleBand(ctx, p.table, band); err != nil {
			p.logger.Warn(fmt.Sprintf("view: styling %s band of %q", band.Kind, p.table), err)
		}
	}
	if err := p.caps.ListBinder.BindList(ctx, p.table, SelectorRow, SelectorCol, classes); err != nil {
		p.logger.Warn(fmt.Sprintf("view: binding class list of %q", p.table), err)
	}
}
