package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "empty", base: "data/lessons.xlsx", path: "", want: ""},
		{name: "absolute", base: "data/lessons.xlsx", path: "/srv/ledger.xlsx", want: "/srv/ledger.xlsx"},
		{name: "relative", base: "data/lessons.xlsx", path: "ledger.xlsx", want: filepath.Join("data", "ledger.xlsx")},
		{name: "base in working dir", base: "lessons.xlsx", path: "ledger.xlsx", want: "ledger.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath(tt.base, tt.path))
		})
	}
}

func TestProjectRoot(t *testing.T) {
	root, err := ProjectRoot()
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "go.mod"))
	assert.NoError(t, err)
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Level 2", CleanString("  Level 2\t"))
	assert.Equal(t, "push", CleanString(" PUSH ", true))
}
