package sheet

import "context"

// BandKind names the visual category of a block of view columns.
type BandKind string

const (
	BandIdentity     BandKind = "identity"
	BandAttendance   BandKind = "attendance"
	BandStage        BandKind = "stage"
	BandSupplemental BandKind = "supplemental"
)

// Band is a rectangular block of cells sharing a visual category. Bounds are inclusive.
type Band struct {
	Kind    BandKind `json:"kind"`
	FromRow int      `json:"from_row"`
	ToRow   int      `json:"to_row"`
	FromCol int      `json:"from_col"`
	ToCol   int      `json:"to_col"`
}

type (
	// Styler applies the visual category of a Band.
	Styler interface {
		StyleBand(ctx context.Context, table string, band Band) error
	}

	// Freezer keeps the first `rows` rows and `cols` columns of a table in view.
	Freezer interface {
		Freeze(ctx context.Context, table string, rows, cols int) error
	}

	// ListBinder binds a drop-down of `options` to a single cell.
	ListBinder interface {
		BindList(ctx context.Context, table string, row, col int, options []string) error
	}
)

// Capabilities holds the optional collaborators of a Store, resolved once.
// Stores that lack a capability get a no-op in its place.
type Capabilities struct {
	Styler     Styler
	Freezer    Freezer
	ListBinder ListBinder
}

// ResolveCapabilities probes `store`, and the stores it decorates, for the optional capabilities.
func ResolveCapabilities(store Store) Capabilities {
	caps := Capabilities{
		Styler:     nopCapability{},
		Freezer:    nopCapability{},
		ListBinder: nopCapability{},
	}
	for {
		w, ok := store.(interface{ Unwrap() Store })
		if !ok {
			break
		}
		store = w.Unwrap()
	}
	if s, ok := store.(Styler); ok {
		caps.Styler = s
	}
	if f, ok := store.(Freezer); ok {
		caps.Freezer = f
	}
	if b, ok := store.(ListBinder); ok {
		caps.ListBinder = b
	}
	return caps
}

type nopCapability struct{}

func (nopCapability) StyleBand(context.Context, string, Band) error             { return nil }
func (nopCapability) Freeze(context.Context, string, int, int) error            { return nil }
func (nopCapability) BindList(context.Context, string, int, int, []string) error { return nil }
