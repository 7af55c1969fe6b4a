package consolidate

import (
	"sort"

	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/danielolaszy/doc-issues/pkg/models"
)

// typeLabels maps documentation labels to issue types. The order decides
// which type wins when an issue carries several documentation labels.
var typeLabels = []struct {
	label string
	typ   models.IssueType
}{
	{models.LabelDocumentedFeature, models.TypeFeature},
	{models.LabelDocumentedUserStory, models.TypeUserStory},
	{models.LabelDocumentedRequirement, models.TypeFunctionality},
	{models.LabelDocumentedFunctionality, models.TypeFunctionality},
}

// Classify derives the documentation type of an issue from its labels.
// Labels match exactly; an issue without a documentation label is TypeIssue.
func Classify(labels []string) models.IssueType {
	matches := documentationTypes(labels)
	if len(matches) == 0 {
		return models.TypeIssue
	}
	return matches[0]
}

// documentationTypes returns the distinct types the labels map to, in
// precedence order.
func documentationTypes(labels []string) []models.IssueType {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}

	var types []models.IssueType
	seen := make(map[models.IssueType]bool)
	for _, tl := range typeLabels {
		if set[tl.label] && !seen[tl.typ] {
			seen[tl.typ] = true
			types = append(types, tl.typ)
		}
	}
	return types
}

// classifyIssue classifies and warns when the labels are ambiguous.
func classifyIssue(key string, labels []string) models.IssueType {
	types := documentationTypes(labels)
	if len(types) == 0 {
		return models.TypeIssue
	}
	if len(types) > 1 {
		logging.Warn("multiple documentation labels found, using the first by precedence",
			"issue", key,
			"labels", labels,
			"type", types[0].String())
	}
	return types[0]
}

// FilterProjects keeps the statuses whose project title is in filter. An
// empty filter keeps everything.
func FilterProjects(statuses []models.ProjectStatus, filter []string) []models.ProjectStatus {
	if len(filter) == 0 {
		return append([]models.ProjectStatus(nil), statuses...)
	}

	allowed := make(map[string]bool, len(filter))
	for _, title := range filter {
		allowed[title] = true
	}

	var kept []models.ProjectStatus
	for _, s := range statuses {
		if allowed[s.ProjectTitle] {
			kept = append(kept, s)
		}
	}
	return kept
}

// AuditEvents converts timeline entries to audit events, dropping the kinds
// that are not recorded, ordered by timestamp. Entries sharing a timestamp
// keep their timeline order.
func AuditEvents(entries []models.TimelineEntry) []models.AuditEvent {
	events := make([]models.AuditEvent, 0, len(entries))
	for _, entry := range entries {
		action, ok := models.ParseAuditAction(entry.Event)
		if !ok {
			continue
		}

		var payload string
		switch action.Payload() {
		case models.PayloadLabel:
			payload = entry.Label
		case models.PayloadAssignee:
			payload = entry.Assignee
		case models.PayloadMilestone:
			payload = entry.Milestone
		}

		event, err := models.NewAuditEvent(action, entry.CreatedAt, entry.Actor, payload)
		if err != nil {
			continue
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}
