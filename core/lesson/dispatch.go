package lesson

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
)

// Event is a host trigger. The set of events is closed.
type Event interface {
	event()
	String() string
}

// CellEdited is raised after a cell of the workbook was edited by hand.
type CellEdited struct {
	Table string     `json:"table"`
	Row   int        `json:"row"`
	Col   int        `json:"col"`
	Value string     `json:"value"`
	Actor core.Actor `json:"-"`
}

// ClassSelected is raised when a class selector was chosen.
type ClassSelected struct {
	Value string     `json:"value"`
	Actor core.Actor `json:"-"`
}

// SystemOpened is raised when the workbook is opened.
type SystemOpened struct {
	Actor core.Actor `json:"-"`
}

func (CellEdited) event()    {}
func (ClassSelected) event() {}
func (SystemOpened) event()  {}

func (e CellEdited) String() string {
	return fmt.Sprintf("cell edited (%q R%dC%d)", e.Table, e.Row+1, e.Col+1)
}

func (e ClassSelected) String() string { return fmt.Sprintf("class selected (%q)", e.Value) }

func (SystemOpened) String() string { return "system opened" }

// Outcome is what a dispatched event led to.
type Outcome struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
	Err     error  `json:"-"`
}

// Dispatcher routes host events to the Service.
type Dispatcher struct {
	service  *Service
	prompter core.Prompter
	logger   core.Logger
}

func NewDispatcher(service *Service, prompter core.Prompter, logger core.Logger) *Dispatcher {
	if prompter == nil {
		prompter = core.NewStaticPrompter(false)
	}
	return &Dispatcher{service: service, prompter: prompter, logger: logger}
}

// Dispatch handles `ev`. It never panics: failures are logged, alerted and returned in the Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (out Outcome) {
	if ev == nil {
		return Outcome{Event: "none"}
	}
	out.Event = ev.String()

	defer func() {
		if r := recover(); r != nil {
			out.Handled = false
			out.Err = errors.Errorf("panic handling %s: %v", ev, r)
		}
		if out.Err != nil {
			d.logger.Error(fmt.Sprintf("dispatch: %s", ev), out.Err)
			d.prompter.Alert("Something went wrong", UserMessage(out.Err))
		}
	}()

	switch e := ev.(type) {
	case SystemOpened:
		out.Handled = true
		out.Err = d.service.Open(ctx, e.Actor)
	case ClassSelected:
		out.Handled = true
		_, _, out.Err = d.service.SelectClass(ctx, e.Value, e.Actor)
	case CellEdited:
		return d.cellEdited(ctx, e, out)
	}
	return out
}

func (d *Dispatcher) cellEdited(ctx context.Context, e CellEdited, out Outcome) Outcome {
	if e.Table != d.service.Settings().ViewTable {
		return out
	}
	switch {
	case e.Row == SelectorRow && e.Col == SelectorCol:
		out.Handled = true
		_, _, out.Err = d.service.SelectClass(ctx, e.Value, e.Actor)
	case e.Row >= FirstStudentRow:
		out.Handled = true
		d.service.ApplyEdit(ctx, e.Row, e.Col, e.Value)
	}
	return out
}

// UserMessage is the text shown to an instructor for `err`.
func UserMessage(err error) string {
	var mdErr *MissingDependencyError
	switch {
	case errors.As(err, &mdErr) && mdErr.Column != "":
		return fmt.Sprintf("Could not find the %q column in %q. Check the workbook and try again.", mdErr.Column, mdErr.Table)
	case errors.As(err, &mdErr):
		return fmt.Sprintf("Could not find the %q sheet. Check the workbook and try again.", mdErr.Table)
	case errors.Is(err, ErrNoClassSelected):
		return "Select a class first."
	case errors.Is(err, ErrRateLimitExceeded):
		return "The workbook is busy, try again in a minute."
	default:
		return err.Error()
	}
}
