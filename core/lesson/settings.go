package lesson

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/sheet"
)

// persisted property keys
const (
	PropActiveSession = "activeSession"
	PropLedgerRef     = "ledgerRef"
)

type MatchMode string

const (
	// MatchExact matches a roster row on program, day and time.
	MatchExact MatchMode = "exact"
	// MatchSubstring matches a roster row whose program contains the selected program.
	MatchSubstring MatchMode = "substring"
)

type ConflictPolicy string

const (
	// ConflictOverwrite writes over ledger cells changed since the view was pulled, reporting each conflict.
	ConflictOverwrite ConflictPolicy = "overwrite"
	// ConflictReject leaves ledger cells changed since the view was pulled untouched.
	ConflictReject ConflictPolicy = "reject"
)

// LedgerRef locates the ledger: an optional workbook and a table name, written "book.xlsx#Table".
type LedgerRef struct {
	Workbook string
	Table    string
}

func ParseLedgerRef(s string) LedgerRef {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "#"); i >= 0 {
		return LedgerRef{Workbook: strings.TrimSpace(s[:i]), Table: strings.TrimSpace(s[i+1:])}
	}
	return LedgerRef{Table: s}
}

func (r LedgerRef) String() string {
	if r.Workbook == "" {
		return r.Table
	}
	return r.Workbook + "#" + r.Table
}

// Settings is everything the sync engine needs to know, built once at start up.
type Settings struct {
	RosterTable     string
	LedgerTable     string
	ViewTable       string
	PropertiesTable string
	AttendanceSlots int
	IdentityOffset  int
	Prefixes        PrefixRule
	MatchMode       MatchMode
	ConflictPolicy  ConflictPolicy
	Batch           sheet.BatchOptions
	Session         string
	Ledger          LedgerRef
}

// BaselineTable is the hidden table holding the view's marks as last synchronized.
// Its name fits in sheet.MaxTableName whatever the length of the view name.
func (s Settings) BaselineTable() string {
	return sheet.DerivedName("_"+s.ViewTable, "_baseline")
}

// NewSettings builds the Settings from `conf`, overridden by the persisted properties.
func NewSettings(ctx context.Context, conf *core.Config, props core.PropertyStore) (Settings, error) {
	settings := Settings{
		RosterTable:     conf.Sheets.Roster,
		LedgerTable:     conf.Sheets.Ledger,
		ViewTable:       conf.Sheets.View,
		PropertiesTable: conf.Sheets.Properties,
		AttendanceSlots: conf.Sync.AttendanceSlots,
		IdentityOffset:  conf.Sync.IdentityOffset,
		Prefixes: PrefixRule{
			Stage:        conf.Sync.StagePrefix,
			Supplemental: conf.Sync.SupplementalPrefix,
		},
		MatchMode:      MatchMode(conf.Sync.MatchMode),
		ConflictPolicy: ConflictPolicy(conf.Sync.ConflictPolicy),
		Batch: sheet.BatchOptions{
			ChunkSize: conf.Batch.ChunkSize,
			Pause:     conf.Batch.Pause,
		},
		Ledger: LedgerRef{Table: conf.Sheets.Ledger},
	}
	if props == nil {
		return settings, nil
	}

	session, _, err := props.GetProperty(ctx, PropActiveSession)
	if err != nil {
		return Settings{}, errors.Wrap(err, "getting active session")
	}
	settings.Session = session

	ref, ok, err := props.GetProperty(ctx, PropLedgerRef)
	if err != nil {
		return Settings{}, errors.Wrap(err, "getting ledger location")
	}
	if ok && strings.TrimSpace(ref) != "" {
		settings.Ledger = ParseLedgerRef(ref)
		if settings.Ledger.Table == "" {
			settings.Ledger.Table = conf.Sheets.Ledger
		}
		settings.LedgerTable = settings.Ledger.Table
	}
	return settings, nil
}
