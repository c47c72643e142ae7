package lesson

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lessondesk/core/sheet"
)

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		event       Event
		wantHandled bool
		wantState   ViewState
	}{
		{
			name:        "selector edit selects the class",
			event:       CellEdited{Table: viewTable, Row: SelectorRow, Col: SelectorCol, Value: "Level 3"},
			wantHandled: true,
			wantState:   StatePulled,
		},
		{
			name:        "mark edit makes the view dirty",
			event:       CellEdited{Table: viewTable, Row: rowBo, Col: colFloat, Value: "X"},
			wantHandled: true,
			wantState:   StateDirty,
		},
		{
			name:      "header edit is ignored",
			event:     CellEdited{Table: viewTable, Row: HeaderRow, Col: colFloat, Value: "S2-Kick"},
			wantState: StatePulled,
		},
		{
			name:      "selector label edit is ignored",
			event:     CellEdited{Table: viewTable, Row: SelectorRow, Col: SelectorLabelCol, Value: "Level 3"},
			wantState: StatePulled,
		},
		{
			name:      "edit of another table is ignored",
			event:     CellEdited{Table: rosterTable, Row: rowBo, Col: 0, Value: "Bob"},
			wantState: StatePulled,
		},
		{
			name:        "class selected",
			event:       ClassSelected{Value: levelSelector, Actor: instructor},
			wantHandled: true,
			wantState:   StatePulled,
		},
		{
			name:        "system opened",
			event:       SystemOpened{},
			wantHandled: true,
			wantState:   StatePulled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := selectLevel2(t)
			prompter := &testPrompter{}
			d := NewDispatcher(svc, prompter, testLogger(t))

			out := d.Dispatch(ctx, tt.event)
			require.NoError(t, out.Err)
			assert.Equal(t, tt.wantHandled, out.Handled)
			assert.Equal(t, tt.event.String(), out.Event)
			assert.Equal(t, tt.wantState, svc.State())
			assert.Empty(t, prompter.Alerts())
		})
	}
}

func TestDispatcher_Dispatch_failures(t *testing.T) {
	ctx := context.Background()

	t.Run("blank selector", func(t *testing.T) {
		svc, _ := selectLevel2(t)
		prompter := &testPrompter{}
		out := NewDispatcher(svc, prompter, testLogger(t)).
			Dispatch(ctx, CellEdited{Table: viewTable, Row: SelectorRow, Col: SelectorCol, Value: ""})

		assert.True(t, out.Handled)
		assert.True(t, errors.Is(out.Err, ErrNoClassSelected), "Dispatch() error = %v", out.Err)
		assert.Equal(t, []string{"Something went wrong: Select a class first."}, prompter.Alerts())
	})

	t.Run("missing roster", func(t *testing.T) {
		mem := seedWorkbook()
		require.NoError(t, mem.DeleteTable(ctx, rosterTable))
		svc, _, _ := newTestService(t, mem)
		prompter := &testPrompter{}
		out := NewDispatcher(svc, prompter, testLogger(t)).Dispatch(ctx, ClassSelected{Value: levelSelector})

		assert.True(t, IsMissingDependency(out.Err), "Dispatch() error = %v", out.Err)
		if alerts := prompter.Alerts(); assert.Len(t, alerts, 1) {
			assert.Contains(t, alerts[0], `"Roster"`)
		}
	})

	t.Run("panics are recovered", func(t *testing.T) {
		svc := NewService(Deps{Settings: testSettings(), Logger: testLogger(t)})
		prompter := &testPrompter{}
		d := NewDispatcher(svc, prompter, testLogger(t))

		var out Outcome
		assert.NotPanics(t, func() { out = d.Dispatch(ctx, SystemOpened{}) })
		assert.False(t, out.Handled)
		require.Error(t, out.Err)
		assert.Contains(t, out.Err.Error(), "panic")
		assert.Len(t, prompter.Alerts(), 1)

		// the service is still usable afterwards
		assert.NotPanics(t, func() { svc.State() })
	})

	t.Run("nil event", func(t *testing.T) {
		svc, _, _ := newTestService(t, seedWorkbook())
		out := NewDispatcher(svc, nil, testLogger(t)).Dispatch(ctx, nil)
		assert.False(t, out.Handled)
		assert.NoError(t, out.Err)
	})
}

func TestDispatcher_Dispatch_openIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := seedWorkbook()
	svc, _, _ := newTestService(t, mem)
	d := NewDispatcher(svc, nil, testLogger(t))

	for i := 0; i < 3; i++ {
		out := d.Dispatch(ctx, SystemOpened{})
		require.NoError(t, out.Err)
	}
	got, err := mem.ReadTable(ctx, viewTable)
	require.NoError(t, err)
	assert.Equal(t, sheet.Grid{{SelectorLabel}, {"Select a class"}}, got)
}
