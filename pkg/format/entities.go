package format

import (
	"fmt"
	"slices"
	"strings"
)

// EntityType is an entity category returned by the entity recognition API.
type EntityType string

const (
	EntityDateTime     EntityType = "DateTime"
	EntityEmail        EntityType = "Email"
	EntityEvent        EntityType = "Event"
	EntityIPAddress    EntityType = "IPAddress"
	EntityLocation     EntityType = "Location"
	EntityOrganization EntityType = "Organization"
	EntityPerson       EntityType = "Person"
	EntityPersonType   EntityType = "PersonType"
	EntityPhoneNumber  EntityType = "PhoneNumber"
	EntityProduct      EntityType = "Product"
	EntityQuantity     EntityType = "Quantity"
	EntitySkill        EntityType = "Skill"
	EntityURL          EntityType = "URL"
)

// entityDescriptions holds the label of every known entity type.
var entityDescriptions = map[EntityType]string{
	EntityDateTime:     "Date and Time entities",
	EntityEmail:        "Email",
	EntityEvent:        "Event",
	EntityIPAddress:    "IP Address",
	EntityLocation:     "Location",
	EntityOrganization: "Organization",
	EntityPerson:       "Person",
	EntityPersonType:   "Job type or role",
	EntityPhoneNumber:  "Phone number",
	EntityProduct:      "Product",
	EntityQuantity:     "Quantity",
	EntitySkill:        "Skill",
	EntityURL:          "URL",
}

// EntityTypes returns every known entity type, sorted.
func EntityTypes() []EntityType {
	types := make([]EntityType, 0, len(entityDescriptions))
	for t := range entityDescriptions {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// ParseEntityType matches a type name case-insensitively.
func ParseEntityType(s string) (EntityType, error) {
	for t := range entityDescriptions {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Entities lists recognized entity texts per selected type.
type Entities struct {
	*columnSet
	types    []EntityType
	minScore float64
}

// NewEntities creates the formatter for the selected types. Entities scoring
// below minScore are dropped.
func NewEntities(existing []string, prefix string, types []EntityType, minScore float64) (*Entities, error) {
	if minScore < 0 || minScore > 1 {
		return nil, fmt.Errorf("minimum confidence score must be between 0 and 1 (got %g)", minScore)
	}

	selected := slices.Clone(types)
	slices.Sort(selected)
	selected = slices.Compact(selected)

	cs := newColumnSet(existing, prefix)
	for _, t := range selected {
		desc, ok := entityDescriptions[t]
		if !ok {
			return nil, fmt.Errorf("unknown entity type %q", t)
		}
		label := fmt.Sprintf("List of '%s' entities recognized by the API", desc)
		if _, err := cs.add("entity_type_"+strings.ToLower(string(t)), label); err != nil {
			return nil, err
		}
	}

	return &Entities{columnSet: cs, types: selected, minScore: minScore}, nil
}

// Format implements Formatter. A type without entities yields "".
func (f *Entities) Format(response map[string]any) []any {
	entities := getSlice(response, "entities")
	values := make([]any, 0, len(f.types))
	for _, t := range f.types {
		var texts []string
		for _, e := range entities {
			m, ok := e.(map[string]any)
			if !ok || getString(m, "category") != string(t) {
				continue
			}
			score, _ := getFloat(m, "confidenceScore").(float64)
			if score < f.minScore {
				continue
			}
			texts = append(texts, getString(m, "text"))
		}
		if len(texts) == 0 {
			values = append(values, "")
			continue
		}
		values = append(values, texts)
	}
	return values
}
