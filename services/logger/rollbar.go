package logsvc

import (
	"log"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/lessondesk/core"
)

// RollbarLogger reports to Rollbar and echoes every entry to a std logger.
// Entries below its minimum level are only echoed.
type RollbarLogger struct {
	std      *log.Logger
	minLevel zapcore.Level
	// guards the person set on the global rollbar client until the entry is queued
	mu sync.Mutex
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	minLevel := zapcore.InfoLevel
	if conf.Debug {
		minLevel = zapcore.DebugLevel
	}
	return &RollbarLogger{std: std, minLevel: minLevel}
}

// NewStdLogger returns a std logger writing through zap, tagged with `name`.
func NewStdLogger(z *zap.Logger, name string) *log.Logger {
	return zap.NewStdLog(z.Named(name))
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Flush blocks until the queued entries are sent.
func (l *RollbarLogger) Flush() {
	rollbar.Wait()
}

// expected fmt: msg | error, map[string]interface{}, core.Actor
func (l *RollbarLogger) report(level zapcore.Level, msg string, args []interface{}) {
	if level < l.minLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var actorSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set acting instructor
		if actor, ok := arg.(core.Actor); ok {
			if !actorSet { // only set one Actor
				rollbar.SetPerson(actor.ID, actor.Name, actor.Email)
				actorSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !actorSet {
		rollbar.ClearPerson()
	}

	switch level {
	case zapcore.DebugLevel:
		rollbar.Debug(newArgs...)
	case zapcore.InfoLevel:
		rollbar.Info(newArgs...)
	case zapcore.WarnLevel:
		rollbar.Warning(newArgs...)
	case zapcore.ErrorLevel:
		rollbar.Error(newArgs...)
	default:
		rollbar.Critical(newArgs...)
	}
}

func (l *RollbarLogger) print(level zapcore.Level, msg string, args []interface{}) {
	l.std.Printf("%s\t%s", level.CapitalString(), msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Actor:
			l.std.Printf("\tactor=%q id=%s", a.Name, a.ID)
		case error:
			l.std.Printf("\terror=%v", a)
		default:
			l.std.Printf("\t%+v", a)
		}
	}
}

func (l *RollbarLogger) log(level zapcore.Level, msg string, args []interface{}) {
	l.report(level, msg, args)
	l.print(level, msg, args)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(zapcore.DebugLevel, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(zapcore.InfoLevel, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(zapcore.WarnLevel, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(zapcore.ErrorLevel, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(zapcore.FatalLevel, msg, args)
	l.Flush()
	l.std.Fatal(msg)
}
