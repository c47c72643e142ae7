package xlsxsheet

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/lessondesk/core/sheet"
)

// xls worksheets are at most 256 columns wide.
const xlsMaxCols = 256

var maxSourceRows = 100000

var (
	ErrEmptySource       = errors.New("worksheet is empty")
	ErrTooManySourceRows = errors.New("worksheet has too many rows")
)

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// ReadSource reads the rows of an uploaded spreadsheet; the format is picked from `filename`:
// .xls, .csv, otherwise .xlsx. Only the first worksheet of a workbook is read.
// A worksheet longer than maxSourceRows is rejected rather than cut off.
func ReadSource(r io.Reader, filename string) (sheet.Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, errors.Wrap(err, "opening xls")
		}
		ws := wb.GetSheet(0)
		if ws == nil {
			return nil, errors.New("no worksheet found")
		}
		if int(ws.MaxRow)+1 > maxSourceRows {
			return nil, errors.Wrapf(ErrTooManySourceRows, "%q has more than %d", ws.Name, maxSourceRows)
		}
		rows = readXLSRows(ws)
	case ".csv":
		cr := csv.NewReader(bytes.NewReader(data))
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		if rows, err = cr.ReadAll(); err != nil {
			return nil, errors.Wrap(err, "reading csv")
		}
	default:
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "opening xlsx")
		}
		defer func() { _ = f.Close() }()

		name := f.GetSheetName(0)
		if name == "" {
			return nil, errors.New("no worksheet found")
		}
		if rows, err = f.GetRows(name); err != nil {
			return nil, errors.Wrapf(err, "reading %q", name)
		}
	}
	if len(rows) > maxSourceRows {
		return nil, errors.Wrapf(ErrTooManySourceRows, "more than %d", maxSourceRows)
	}

	grid := sheet.Grid(rows).Trim()
	if len(grid) == 0 {
		return nil, ErrEmptySource
	}
	return grid, nil
}

func readXLSRows(ws *xls.WorkSheet) [][]string {
	rows := make([][]string, int(ws.MaxRow)+1)
	for i := range rows {
		row := xlsRow(ws, i)
		if row == nil {
			continue
		}
		cells := make([]string, xlsMaxCols)
		last := -1
		for c := range cells {
			if cells[c] = row.Col(c); cells[c] != "" {
				last = c
			}
		}
		rows[i] = cells[:last+1]
	}
	return rows
}

// xlsRow returns row `i` of `ws`, nil when the row holds no cells.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	// WorkSheet.Row dereferences the missing row
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}
