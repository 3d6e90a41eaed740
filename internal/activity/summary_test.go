package activity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func eventWithChanges(changes map[string]any) Event {
	return Event{
		EntityType: EntityTask,
		EntityID:   "t1",
		Action:     ActionUpdated,
		Changes:    changes,
	}
}

func TestSummarize(t *testing.T) {
	t.Run("status transition", func(t *testing.T) {
		e := eventWithChanges(map[string]any{"old_status": "Backlog", "new_status": "Hecho"})
		assert.Equal(t, []string{"Backlog → Hecho"}, Summarize(e))
	})

	t.Run("stage transition", func(t *testing.T) {
		e := eventWithChanges(map[string]any{"old_stage": "Prospecto", "new_stage": "Negociación"})
		assert.Equal(t, []string{"Prospecto → Negociación"}, Summarize(e))
	})

	t.Run("status wins over stage", func(t *testing.T) {
		e := eventWithChanges(map[string]any{
			"old_status": "Backlog", "new_status": "Hecho",
			"old_stage": "Prospecto", "new_stage": "Cierre",
		})
		assert.Equal(t, []string{"Backlog → Hecho"}, Summarize(e))
	})

	t.Run("partial transition yields nothing", func(t *testing.T) {
		e := eventWithChanges(map[string]any{"old_status": "Backlog"})
		assert.Empty(t, Summarize(e))
	})

	t.Run("title and name are quoted", func(t *testing.T) {
		e := eventWithChanges(map[string]any{"title": "Enviar cotización"})
		assert.Equal(t, []string{`"Enviar cotización"`}, Summarize(e))

		e = eventWithChanges(map[string]any{"name": "ACME Corp"})
		assert.Equal(t, []string{`"ACME Corp"`}, Summarize(e))
	})

	t.Run("filename and approver are prefixed", func(t *testing.T) {
		e := eventWithChanges(map[string]any{"filename": "contrato.pdf"})
		assert.Equal(t, []string{"Archivo: contrato.pdf"}, Summarize(e))

		e = eventWithChanges(map[string]any{"approved_by": "Ana"})
		assert.Equal(t, []string{"Por: Ana"}, Summarize(e))
	})

	t.Run("comment is truncated at 50 runes", func(t *testing.T) {
		long := strings.Repeat("x", 60)
		e := eventWithChanges(map[string]any{"comment": long})
		assert.Equal(t, []string{`"` + strings.Repeat("x", 50) + `..."`}, Summarize(e))

		short := strings.Repeat("x", 50)
		e = eventWithChanges(map[string]any{"comment": short})
		assert.Equal(t, []string{`"` + short + `"`}, Summarize(e))
	})

	t.Run("fragments follow rule priority order", func(t *testing.T) {
		e := eventWithChanges(map[string]any{
			"comment":    "se aprueba",
			"old_status": "Pendiente",
			"new_status": "Completada",
			"approved_by": "Luis",
		})
		assert.Equal(t,
			[]string{"Pendiente → Completada", `"se aprueba"`, "Por: Luis"},
			Summarize(e))
	})

	t.Run("numeric values render without decoration", func(t *testing.T) {
		// JSON numbers arrive as float64.
		e := eventWithChanges(map[string]any{"name": "ERP", "title": float64(42)})
		assert.Equal(t, []string{`"42"`, `"ERP"`}, Summarize(e))
	})

	t.Run("empty changes yield empty summary", func(t *testing.T) {
		assert.Empty(t, Summarize(eventWithChanges(nil)))
		assert.Equal(t, "", SummaryText(eventWithChanges(nil)))
	})
}

func TestSummaryText(t *testing.T) {
	e := eventWithChanges(map[string]any{
		"old_stage": "Prospecto",
		"new_stage": "Propuesta",
		"name":      "ACME Corp",
	})
	assert.Equal(t, `Prospecto → Propuesta • "ACME Corp"`, SummaryText(e))
}
