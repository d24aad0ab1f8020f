package smax

import (
	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
	"github.com/dashly-io/dashly-engine/pkg/ingest"
)

// entityTypeNames is the fixed set of entity types surfaced as selectable
// services. SMAX exposes many more, but these are the ones dashboards track.
var entityTypeNames = []string{
	"Request", "Incident", "Problem", "Change", "Task", "KnowledgeDocument",
}

func entityTypes() []source.ServiceOption {
	out := make([]source.ServiceOption, len(entityTypeNames))
	for i, name := range entityTypeNames {
		out[i] = source.ServiceOption{ID: name, Name: name}
	}
	return out
}

// entityProperties is the fixed layout requested for every entity query.
var entityProperties = []string{
	"Id", "DisplayLabel", "Description", "Status", "Priority", "Urgency",
	"ImpactScope", "Category", "RegisteredForActualService",
	"RequestedByPerson", "AssignedToPerson", "ExpertGroup", "PhaseId",
	"CompletionCode", "EmsCreationTime", "LastUpdateTime",
}

var defaultDisplayNames = map[string]string{
	"Id":                         "ID",
	"DisplayLabel":               "Title",
	"Description":                "Description",
	"Status":                     "Status",
	"Priority":                   "Priority",
	"Urgency":                    "Urgency",
	"ImpactScope":                "Impact",
	"Category":                   "Category",
	"RegisteredForActualService": "Service",
	"RequestedByPerson":          "Requested By",
	"AssignedToPerson":           "Assigned To",
	"ExpertGroup":                "Expert Group",
	"PhaseId":                    "Phase",
	"CompletionCode":             "Completion Code",
	"EmsCreationTime":            "Created",
	"LastUpdateTime":             "Updated",
}

// mapEntity restricts an entity's properties to the fixed layout. Properties
// the backend omitted stay absent from the row.
func mapEntity(ent smaxEntity) ingest.Row {
	row := ingest.Row{}
	for _, prop := range entityProperties {
		if v, ok := ent.Properties[prop]; ok && v != nil {
			row[prop] = v
		}
	}
	return row
}
