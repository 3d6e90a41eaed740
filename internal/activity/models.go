// Package activity defines the mutation event model shared by the ingestion,
// query, and retention components. Events are immutable once stored:
// corrections are new events, never in-place edits.
package activity

import (
	"fmt"
	"time"

	dErrors "pactum/pkg/domain-errors"
)

// EntityType identifies which kind of business entity an event refers to.
// The taxonomy is open: collaborators may emit new kinds without coordinated
// schema changes, so unknown values are preserved rather than rejected.
type EntityType string

const (
	EntityTask        EntityType = "task"
	EntityPhase       EntityType = "phase"
	EntityPayment     EntityType = "payment"
	EntityClient      EntityType = "client"
	EntityContract    EntityType = "contract"
	EntityOpportunity EntityType = "opportunity"
	EntityProject     EntityType = "project"
)

var entityLabels = map[EntityType]string{
	EntityTask:        "Tarea",
	EntityPhase:       "Fase",
	EntityPayment:     "Pago",
	EntityClient:      "Cliente",
	EntityContract:    "Contrato",
	EntityOpportunity: "Oportunidad",
	EntityProject:     "Proyecto",
}

// Known reports whether the entity type belongs to the core taxonomy.
func (t EntityType) Known() bool {
	_, ok := entityLabels[t]
	return ok
}

// Label returns the display label for the entity type. Unknown types render
// as their raw value.
func (t EntityType) Label() string {
	if label, ok := entityLabels[t]; ok {
		return label
	}
	return string(t)
}

// Action identifies what happened to the entity.
type Action string

const (
	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionDeleted       Action = "deleted"
	ActionApproved      Action = "approved"
	ActionStatusChanged Action = "status_changed"
	ActionStageChanged  Action = "stage_changed"
	ActionCommentAdded  Action = "comment_added"
	ActionUploaded      Action = "uploaded"
)

var actionLabels = map[Action]string{
	ActionCreated:       "Creado",
	ActionUpdated:       "Actualizado",
	ActionDeleted:       "Eliminado",
	ActionApproved:      "Aprobado",
	ActionStatusChanged: "Estado cambiado",
	ActionStageChanged:  "Etapa cambiada",
	ActionCommentAdded:  "Comentario agregado",
	ActionUploaded:      "Subido",
}

// Known reports whether the action belongs to the core taxonomy.
func (a Action) Known() bool {
	_, ok := actionLabels[a]
	return ok
}

// Label returns the display label for the action. Unknown actions render as
// their raw value so custom kinds still produce a readable feed entry.
func (a Action) Label() string {
	if label, ok := actionLabels[a]; ok {
		return label
	}
	return string(a)
}

// Actor is the identity that triggered a mutation, captured at write time.
// Later renames of the actor do not retroactively change historical entries.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Defaults used when a collaborator emits an event without actor identity,
// e.g. seed scripts and scheduled jobs.
const (
	SystemActorID   = "system"
	SystemActorName = "Sistema"
)

// Event is one immutable record of a single change to a tracked entity.
// ID is assigned at ingestion; Timestamp and Seq are assigned by the store at
// append time. Seq breaks timestamp ties with a strict insertion order.
type Event struct {
	ID         string         `json:"id"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     Action         `json:"action"`
	Changes    map[string]any `json:"changes"`
	UserID     string         `json:"user_id"`
	UserName   string         `json:"user_name"`
	Timestamp  time.Time      `json:"timestamp"`
	Seq        int64          `json:"seq"`
}

// NewEvent validates a mutation payload and builds the event to append.
// Entity type and action are validated only loosely: unrecognized values are
// accepted. Changes must be a shallow diff bag; downstream summarization
// assumes flat key/value pairs, so nested containers are rejected.
func NewEvent(entityType, entityID, action string, changes map[string]any, actor Actor) (Event, error) {
	if entityType == "" {
		return Event{}, dErrors.New(dErrors.CodeBadRequest, "entity_type is required")
	}
	if entityID == "" {
		return Event{}, dErrors.New(dErrors.CodeBadRequest, "entity_id is required")
	}
	if action == "" {
		return Event{}, dErrors.New(dErrors.CodeBadRequest, "action is required")
	}
	if err := validateChanges(changes); err != nil {
		return Event{}, err
	}

	if actor.ID == "" {
		actor.ID = SystemActorID
	}
	if actor.Name == "" {
		actor.Name = SystemActorName
	}

	// Copy so later mutation of the caller's map cannot alter the event.
	copied := make(map[string]any, len(changes))
	for k, v := range changes {
		copied[k] = v
	}

	return Event{
		EntityType: EntityType(entityType),
		EntityID:   entityID,
		Action:     Action(action),
		Changes:    copied,
		UserID:     actor.ID,
		UserName:   actor.Name,
	}, nil
}

func validateChanges(changes map[string]any) error {
	for key, value := range changes {
		switch value.(type) {
		case map[string]any, []any, map[string]string:
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("changes must be a shallow mapping: key %q has a nested value", key))
		}
	}
	return nil
}
