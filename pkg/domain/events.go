package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventProjectCreated EventType = "project_created"
	EventProjectUpdated EventType = "project_updated"
	EventProjectDeleted EventType = "project_deleted"
	EventCodeGenerated  EventType = "code_generated"
)

// ProjectEvent describes a change to a stored project.
type ProjectEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name,omitempty"`

	// Diff is set for updates that changed the flow.
	Diff *FlowDiff `json:"diff,omitempty"`
	// Files is the number of generated files for EventCodeGenerated.
	Files int `json:"files,omitempty"`
}

// LifecycleHooks defines callbacks for project observability.
type LifecycleHooks struct {
	OnProjectChange func(context.Context, *ProjectEvent)
}

// Emit calls the change hook when one is set.
func (h LifecycleHooks) Emit(ctx context.Context, e *ProjectEvent) {
	if h.OnProjectChange != nil {
		h.OnProjectChange(ctx, e)
	}
}
