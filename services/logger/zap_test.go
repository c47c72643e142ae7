package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/lessondesk/core"
)

func TestZapLogger(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(obs))

	logger.Warn("push: student not in ledger",
		map[string]interface{}{"student": "Cy Doe"},
		core.Actor{ID: "42", Name: "Ms Lee"},
	)
	logger.Error("push failed", errors.New("boom"))
	logger.Debug("extra", 7)

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 3) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "Cy Doe", ctx["student"])
		assert.Equal(t, "Ms Lee", ctx["actor"])

		assert.Equal(t, "boom", entries[1].ContextMap()["error"])
		assert.EqualValues(t, 7, entries[2].ContextMap()["arg0"])
	}
}
