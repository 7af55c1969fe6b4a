package models

import (
	"fmt"
	"time"
)

// AuditAction is one of the timeline event kinds kept in audit_events.
type AuditAction string

const (
	ActionLabeled      AuditAction = "labeled"
	ActionUnlabeled    AuditAction = "unlabeled"
	ActionAssigned     AuditAction = "assigned"
	ActionUnassigned   AuditAction = "unassigned"
	ActionMilestoned   AuditAction = "milestoned"
	ActionDemilestoned AuditAction = "demilestoned"
	ActionReopened     AuditAction = "reopened"
	ActionClosed       AuditAction = "closed"
)

// PayloadKind names the extra field an audit action carries.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadLabel
	PayloadAssignee
	PayloadMilestone
)

var auditPayloads = map[AuditAction]PayloadKind{
	ActionLabeled:      PayloadLabel,
	ActionUnlabeled:    PayloadLabel,
	ActionAssigned:     PayloadAssignee,
	ActionUnassigned:   PayloadAssignee,
	ActionMilestoned:   PayloadMilestone,
	ActionDemilestoned: PayloadMilestone,
	ActionReopened:     PayloadNone,
	ActionClosed:       PayloadNone,
}

// ParseAuditAction maps a raw timeline event name to an AuditAction. The
// boolean is false for kinds that are not recorded.
func ParseAuditAction(event string) (AuditAction, bool) {
	a := AuditAction(event)
	_, ok := auditPayloads[a]
	return a, ok
}

// Payload returns the kind of payload the action carries.
func (a AuditAction) Payload() PayloadKind {
	return auditPayloads[a]
}

// AuditEvent is one recorded change on an issue's timeline.
type AuditEvent struct {
	Action    AuditAction
	Timestamp time.Time
	Actor     string

	// Only the field matching Action.Payload() is set.
	Label     string
	Assignee  string
	Milestone string
}

// NewAuditEvent builds an event for action, keeping only the payload value
// relevant to it.
func NewAuditEvent(action AuditAction, ts time.Time, actor, payload string) (AuditEvent, error) {
	kind, ok := auditPayloads[action]
	if !ok {
		return AuditEvent{}, fmt.Errorf("unsupported audit action %q", action)
	}
	e := AuditEvent{Action: action, Timestamp: ts, Actor: actor}
	switch kind {
	case PayloadLabel:
		e.Label = payload
	case PayloadAssignee:
		e.Assignee = payload
	case PayloadMilestone:
		e.Milestone = payload
	}
	return e, nil
}

type auditEventJSON struct {
	Action    AuditAction `json:"action"`
	Timestamp string      `json:"timestamp"`
	Actor     string      `json:"actor"`
	Label     *string     `json:"label,omitempty"`
	Assignee  *string     `json:"assignee,omitempty"`
	Milestone *string     `json:"milestone,omitempty"`
}

// MarshalJSON emits the common fields plus the payload key of the action.
func (e AuditEvent) MarshalJSON() ([]byte, error) {
	out := auditEventJSON{
		Action:    e.Action,
		Timestamp: FormatTime(e.Timestamp),
		Actor:     e.Actor,
	}
	switch e.Action.Payload() {
	case PayloadLabel:
		out.Label = &e.Label
	case PayloadAssignee:
		out.Assignee = &e.Assignee
	case PayloadMilestone:
		out.Milestone = &e.Milestone
	}
	return marshal(out)
}
