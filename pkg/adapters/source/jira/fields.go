package jira

import (
	"strings"

	"github.com/dashly-io/dashly-engine/pkg/ingest"
)

// issueFieldOrder is the fixed layout every fetched issue maps into.
var issueFieldOrder = []string{
	"key", "summary", "status", "assignee", "reporter", "priority",
	"issueType", "created", "updated", "resolved", "project", "projectKey",
	"description", "labels", "components", "fixVersions", "storyPoints",
	"sprint",
}

var defaultDisplayNames = map[string]string{
	"key":         "Key",
	"summary":     "Summary",
	"status":      "Status",
	"assignee":    "Assignee",
	"reporter":    "Reporter",
	"priority":    "Priority",
	"issueType":   "Issue Type",
	"created":     "Created",
	"updated":     "Updated",
	"resolved":    "Resolved",
	"project":     "Project",
	"projectKey":  "Project Key",
	"description": "Description",
	"labels":      "Labels",
	"components":  "Components",
	"fixVersions": "Fix Versions",
	"storyPoints": "Story Points",
	"sprint":      "Sprint",
}

// Story points and sprint live in the customfields Atlassian assigns on
// team-managed sites.
const (
	storyPointsField = "customfield_10016"
	sprintField      = "customfield_10020"
)

// mapIssue flattens one issue into the fixed field layout. Fields absent from
// the issue are omitted from the row rather than set to empty values.
func mapIssue(issue jiraIssue) ingest.Row {
	row := ingest.Row{}
	if issue.Key != "" {
		row["key"] = issue.Key
	}

	f := issue.Fields
	setString(row, "summary", f["summary"])
	setString(row, "description", f["description"])
	setString(row, "created", f["created"])
	setString(row, "updated", f["updated"])
	setString(row, "resolved", f["resolutiondate"])

	setNested(row, "status", f["status"], "name")
	setNested(row, "assignee", f["assignee"], "displayName")
	setNested(row, "reporter", f["reporter"], "displayName")
	setNested(row, "priority", f["priority"], "name")
	setNested(row, "issueType", f["issuetype"], "name")
	setNested(row, "project", f["project"], "name")
	setNested(row, "projectKey", f["project"], "key")

	if labels := stringList(f["labels"]); labels != "" {
		row["labels"] = labels
	}
	if names := nameList(f["components"]); names != "" {
		row["components"] = names
	}
	if names := nameList(f["fixVersions"]); names != "" {
		row["fixVersions"] = names
	}
	if points, ok := f[storyPointsField].(float64); ok {
		row["storyPoints"] = points
	}
	if sprint := sprintName(f[sprintField]); sprint != "" {
		row["sprint"] = sprint
	}
	return row
}

func setString(row ingest.Row, field string, v any) {
	if s, ok := v.(string); ok && s != "" {
		row[field] = s
	}
}

// setNested extracts a string attribute from a nested object field, e.g.
// status.name or assignee.displayName.
func setNested(row ingest.Row, field string, v any, attr string) {
	obj, ok := v.(map[string]any)
	if !ok {
		return
	}
	if s, ok := obj[attr].(string); ok && s != "" {
		row[field] = s
	}
}

func stringList(v any) string {
	items, ok := v.([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func nameList(v any) string {
	items, ok := v.([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := obj["name"].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// sprintName returns the name of the most recent sprint entry.
func sprintName(v any) string {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	obj, ok := items[len(items)-1].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj["name"].(string)
	return s
}
