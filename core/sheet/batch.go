package sheet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/lessondesk/core"
)

// StagingSuffix is appended to a destination table name to get the table a replace is staged in.
// See StagingName.
const StagingSuffix = "~staging"

// ErrIncompleteReplace is returned when a committed table does not hold every source row.
var ErrIncompleteReplace = errors.New("replaced table row count does not match its source")

type BatchOptions struct {
	// ChunkSize is the number of rows written per call.
	ChunkSize int
	// Pause is the minimum delay between two write calls.
	Pause time.Duration
}

// BatchReport summarizes a chunked write.
type BatchReport struct {
	Table    string        `json:"table"`
	Rows     int           `json:"rows"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}

func (r BatchReport) String() string {
	return fmt.Sprintf("%d rows written to %q in %d batches (%s)", r.Rows, r.Table, r.Batches, r.Duration.Round(time.Millisecond))
}

// BatchWriter splits large writes into bounded windows written one after the other,
// pausing between windows to stay under the store's write-throughput ceiling.
type BatchWriter struct {
	store     Store
	chunkSize int
	limiter   *rate.Limiter
	logger    core.Logger
}

func NewBatchWriter(store Store, opts BatchOptions, logger core.Logger) *BatchWriter {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	limit := rate.Inf
	if opts.Pause > 0 {
		limit = rate.Every(opts.Pause)
	}
	return &BatchWriter{
		store:     store,
		chunkSize: opts.ChunkSize,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// StagingName is the table a replace of `dest` is staged in.
func StagingName(dest string) string {
	return DerivedName(dest, StagingSuffix)
}

// Replace rebuilds `dest` with the contents of `src`.
// The rows are written into a staging table which is then renamed over `dest`:
// the rename is the only commit point, a failed replace leaves `dest` untouched.
func (w *BatchWriter) Replace(ctx context.Context, dest string, src Grid) (BatchReport, error) {
	start := time.Now()
	report := BatchReport{Table: dest}
	staging := StagingName(dest)

	// leftovers of a previous failed replace
	exists, err := w.store.HasTable(ctx, staging)
	if err != nil {
		return report, errors.Wrapf(err, "checking %q", staging)
	}
	if exists {
		if err = w.store.DeleteTable(ctx, staging); err != nil {
			return report, errors.Wrapf(err, "dropping stale %q", staging)
		}
	}
	if err = w.store.CreateTable(ctx, staging); err != nil {
		return report, errors.Wrapf(err, "creating %q", staging)
	}

	batches, err := w.writeWindows(ctx, staging, 0, src)
	report.Batches = batches
	if err != nil {
		w.discard(ctx, staging)
		return report, errors.Wrapf(err, "staging %q", dest)
	}
	if err = w.store.RenameTable(ctx, staging, dest); err != nil {
		w.discard(ctx, staging)
		return report, errors.Wrapf(err, "committing %q", dest)
	}

	got, err := w.store.ReadTable(ctx, dest)
	if err != nil {
		return report, errors.Wrapf(err, "reading back %q", dest)
	}
	report.Rows = len(got.Trim())
	report.Duration = time.Since(start)
	if want := len(src.Trim()); report.Rows != want {
		return report, errors.Wrapf(ErrIncompleteReplace, "%q has %d rows, want %d", dest, report.Rows, want)
	}

	w.logger.Info(fmt.Sprintf("batch: %s", report))
	return report, nil
}

// WriteRows writes `rows` in place, starting at row `row`, column 0.
func (w *BatchWriter) WriteRows(ctx context.Context, table string, row int, rows Grid) (BatchReport, error) {
	start := time.Now()
	batches, err := w.writeWindows(ctx, table, row, rows)
	report := BatchReport{Table: table, Rows: len(rows), Batches: batches, Duration: time.Since(start)}
	return report, err
}

// WriteCells writes `cells` in chunks touching at most ChunkSize distinct rows each.
func (w *BatchWriter) WriteCells(ctx context.Context, table string, cells []CellUpdate) (BatchReport, error) {
	start := time.Now()
	report := BatchReport{Table: table}
	if len(cells) == 0 {
		return report, nil
	}

	sorted := append([]CellUpdate(nil), cells...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Row == sorted[j].Row {
			return sorted[i].Col < sorted[j].Col
		}
		return sorted[i].Row < sorted[j].Row
	})

	flush := func(chunk []CellUpdate) error {
		if err := w.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "waiting for write window")
		}
		if err := w.store.WriteCells(ctx, table, chunk); err != nil {
			return errors.Wrapf(err, "writing %d cells to %q", len(chunk), table)
		}
		report.Batches++
		return nil
	}

	var chunk []CellUpdate
	var rows int
	for i, c := range sorted {
		newRow := i == 0 || c.Row != sorted[i-1].Row
		if newRow {
			if rows == w.chunkSize {
				if err := flush(chunk); err != nil {
					return report, err
				}
				chunk, rows = nil, 0
			}
			rows++
			report.Rows++
		}
		chunk = append(chunk, c)
	}
	if err := flush(chunk); err != nil {
		return report, err
	}
	report.Duration = time.Since(start)
	return report, nil
}

func (w *BatchWriter) writeWindows(ctx context.Context, table string, row int, rows Grid) (int, error) {
	var batches int
	for from := 0; from < len(rows); from += w.chunkSize {
		if err := w.limiter.Wait(ctx); err != nil {
			return batches, errors.Wrap(err, "waiting for write window")
		}
		window := rows.Window(from, from+w.chunkSize)
		if err := w.store.WriteRange(ctx, table, row+from, 0, window); err != nil {
			return batches, errors.Wrapf(err, "writing rows %d-%d", row+from, row+from+len(window)-1)
		}
		batches++
		w.logger.Debug(fmt.Sprintf("batch: %q rows %d-%d written", table, row+from, row+from+len(window)-1))
	}
	return batches, nil
}

func (w *BatchWriter) discard(ctx context.Context, staging string) {
	if err := w.store.DeleteTable(ctx, staging); err != nil && !errors.Is(err, ErrTableNotFound) {
		w.logger.Error(fmt.Sprintf("batch: dropping %q", staging), err)
	}
}
