package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
	"go.uber.org/zap/zaptest"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/sheet"
	logsvc "github.com/trezcool/lessondesk/services/logger"
	"github.com/trezcool/lessondesk/storage/database"
)

const (
	RosterTable = "Roster"
	LedgerTable = "Skills Ledger"
	ViewTable   = "Class View"
	Selector    = "Level 2 Monday 4:00"
)

// Roster has Ann Lee and Bo Kim in Level 2.
func Roster() sheet.Grid {
	return sheet.Grid{
		{"First", "Last", "Age", "Program"},
		{"Ann", "Lee", "7", "Level 2"},
		{"Cy", "Ng", "9", "Level 3"},
		{"Bo", "Kim", "8", "Level 2"},
	}
}

// Ledger has Ann Lee's S1-Float completed.
func Ledger() sheet.Grid {
	return sheet.Grid{
		{"First", "Last", "S1-Float", "SAW-Glide"},
		{"Ann", "Lee", "X"},
		{"Bo", "Kim"},
		{"Cy", "Ng", "/", "X"},
	}
}

func NewConfig(t *testing.T) *core.Config {
	conf, err := core.LoadConfig(viper.New(), "TEST")
	if err != nil {
		t.Fatalf("NewConfig() failed: %v", err)
	}
	return conf
}

func NewLogger(t *testing.T) core.Logger {
	return logsvc.NewZapLogger(zaptest.NewLogger(t))
}

// SeedTable creates (or replaces) table `name` holding `rows`.
func SeedTable(t *testing.T, store sheet.Store, name string, rows sheet.Grid) {
	ctx := context.Background()
	ok, err := store.HasTable(ctx, name)
	if err != nil {
		t.Fatalf("SeedTable() failed: %v", err)
	}
	if ok {
		err = store.DeleteTable(ctx, name)
	}
	if err == nil {
		err = store.CreateTable(ctx, name)
	}
	if err == nil {
		err = store.WriteRange(ctx, name, 0, 0, rows)
	}
	if err != nil {
		t.Fatalf("SeedTable() failed: %v", err)
	}
}

// SeedWorkbook writes the Roster and Ledger fixtures into `store`.
func SeedWorkbook(t *testing.T, store sheet.Store) {
	SeedTable(t, store, RosterTable, Roster())
	SeedTable(t, store, LedgerTable, Ledger())
}

// PrepareDB returns a migrated in-memory sqlite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	db, err := database.OpenSQLite(database.MemoryPath)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

var Actor = core.Actor{ID: "1", Name: "Maya", Email: "maya@lessondesk.test"}
