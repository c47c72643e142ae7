package echoapi

import (
	"net/http"
	"path/filepath"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/lesson"
	xlsxsheet "github.com/trezcool/lessondesk/storage/sheets/xlsx"
)

// event types accepted by POST /events
const (
	eventSystemOpened  = "system_opened"
	eventClassSelected = "class_selected"
	eventCellEdited    = "cell_edited"
)

type lessonApi struct {
	svc        *lesson.Service
	dispatcher *lesson.Dispatcher
	validate   *validator.Validate
	translator ut.Translator
}

func registerLessonAPI(g *echo.Group, deps ServerDeps) {
	api := lessonApi{
		svc:        deps.Service,
		dispatcher: deps.Dispatcher,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	g.GET("/classes", api.classes)
	g.GET("/taxonomy", api.taxonomy)
	g.GET("/view", api.view)
	g.PUT("/view/marks", api.editMarks)
	g.POST("/events", api.dispatch)
	g.POST("/push", api.push)
	g.POST("/import", api.importTable)
	g.GET("/history", api.history)
}

// Handlers

func (api *lessonApi) classes(ctx echo.Context) error {
	classes, err := api.svc.Classes(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	resp := make([]ClassResponse, 0, len(classes))
	for _, c := range classes {
		resp = append(resp, ClassResponse{Selector: c.String(), Class: c})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *lessonApi) taxonomy(ctx echo.Context) error {
	tax, err := api.svc.Taxonomy(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "extracting taxonomy")
	}
	return ctx.JSON(http.StatusOK, tax)
}

func (api *lessonApi) view(ctx echo.Context) error {
	snap, err := api.svc.View(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading view")
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *lessonApi) editMarks(ctx echo.Context) error {
	var data MarkEditsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkEditsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.EditMarks(ctx.Request().Context(), data.Edits)
	if err != nil {
		return errors.Wrap(err, "editing marks")
	}
	return ctx.JSON(http.StatusOK, MarkEditsResponse{Marks: n, State: api.svc.State()})
}

func (api *lessonApi) dispatch(ctx echo.Context) error {
	var data EventRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EventRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	out := api.dispatcher.Dispatch(ctx.Request().Context(), data.Event(getContextActor(ctx)))
	resp := EventResponse{Event: out.Event, Handled: out.Handled}
	if out.Err != nil {
		resp.Error = lesson.UserMessage(out.Err)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *lessonApi) push(ctx echo.Context) error {
	sum, err := api.svc.Push(ctx.Request().Context(), getContextActor(ctx))
	if err != nil {
		return errors.Wrap(err, "pushing marks")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *lessonApi) importTable(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: errMissingSource})
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".xlsx", ".xls", ".csv":
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: errUnsupportedExt})
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	src, err := xlsxsheet.ReadSource(f, fh.Filename)
	if err != nil {
		if errors.Is(err, xlsxsheet.ErrEmptySource) || errors.Is(err, xlsxsheet.ErrTooManySourceRows) {
			return core.NewValidationError(nil, core.FieldError{Field: "file", Error: err.Error()})
		}
		return core.NewValidationError(errors.Wrap(err, "reading upload"))
	}

	report, err := api.svc.Import(ctx.Request().Context(), lesson.ImportRequest{
		Table:     ctx.FormValue("table"),
		Source:    src,
		Confirmed: ctx.FormValue("confirm") == "true",
		Actor:     getContextActor(ctx),
	})
	if err != nil {
		return errors.Wrap(err, "importing")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *lessonApi) history(ctx echo.Context) error {
	filter, err := bindHistoryFilter(ctx)
	if err != nil {
		return ctx.JSON(http.StatusOK, []lesson.HistoryEntry{})
	}

	entries, err := api.svc.History(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	if entries == nil {
		entries = []lesson.HistoryEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

type (
	ClassResponse struct {
		Selector string `json:"selector"`
		lesson.Class
	}

	MarkEditsRequest struct {
		Edits []lesson.MarkEdit `json:"edits" validate:"required,min=1,dive"`
	}

	MarkEditsResponse struct {
		Marks int              `json:"marks"`
		State lesson.ViewState `json:"state"`
	}

	EventRequest struct {
		Type  string `json:"type" validate:"oneof=system_opened class_selected cell_edited"`
		Table string `json:"table"`
		Row   int    `json:"row" validate:"min=0"`
		Col   int    `json:"col" validate:"min=0"`
		Value string `json:"value"`
	}

	EventResponse struct {
		Event   string `json:"event"`
		Handled bool   `json:"handled"`
		Error   string `json:"error,omitempty"`
	}
)

func (mr *MarkEditsRequest) Validate(validate *validator.Validate) error {
	for i := range mr.Edits {
		mr.Edits[i].First = core.CleanString(mr.Edits[i].First)
		mr.Edits[i].Last = core.CleanString(mr.Edits[i].Last)
		mr.Edits[i].Skill = core.CleanString(mr.Edits[i].Skill)
		mr.Edits[i].Value = core.CleanString(mr.Edits[i].Value)
	}
	return validate.Struct(mr)
}

func (er *EventRequest) Validate(validate *validator.Validate) error {
	er.Type = core.CleanString(er.Type, true /* lower */)
	return validate.Struct(er)
}

// Event converts the request into the dispatcher's event.
func (er EventRequest) Event(actor core.Actor) lesson.Event {
	switch er.Type {
	case eventSystemOpened:
		return lesson.SystemOpened{Actor: actor}
	case eventClassSelected:
		return lesson.ClassSelected{Value: er.Value, Actor: actor}
	case eventCellEdited:
		return lesson.CellEdited{Table: er.Table, Row: er.Row, Col: er.Col, Value: er.Value, Actor: actor}
	}
	return nil
}
