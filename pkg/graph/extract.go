package graph

import (
	"regexp"
	"sort"
	"strings"

	"github.com/datapeak/backend/pkg/common"
)

// Entity types assigned by InferEntityType.
const (
	EntityTypePerson       = "person"
	EntityTypeOrganization = "organization"
	EntityTypeLocation     = "location"
	EntityTypeEvent        = "event"
	EntityTypeContact      = "contact"
	EntityTypeConcept      = "concept"
)

var personNamePattern = regexp.MustCompile(`^[A-Z][a-z]+ [A-Z][a-z]+$`)

// InferEntityType assigns a coarse entity type to a (field, value) pair.
// Rules are evaluated in order and the first match wins: field-name hints
// take precedence over value-shape hints, and the fallback is concept.
func InferEntityType(field, value string) string {
	f := strings.ToLower(field)

	switch {
	case containsAny(f, "name", "person", "user"):
		return EntityTypePerson
	case containsAny(f, "company", "organization", "org"):
		return EntityTypeOrganization
	case containsAny(f, "location", "city", "country"):
		return EntityTypeLocation
	case containsAny(f, "event", "activity"):
		return EntityTypeEvent
	case personNamePattern.MatchString(value):
		return EntityTypePerson
	case strings.Contains(value, "@") && strings.Contains(value, "."):
		return EntityTypeContact
	default:
		return EntityTypeConcept
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// recordEntityKeys returns the entity keys a single record contributes, in
// lexicographic field order. Only non-empty string values qualify; numbers,
// booleans, and nulls are skipped entirely.
//
// The explicit ordering makes per-record key lists deterministic, which in
// turn makes relationship bucketing deterministic across builds.
func recordEntityKeys(record common.Record) []common.EntityKey {
	fields := make([]string, 0, len(record))
	for field := range record {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	keys := make([]common.EntityKey, 0, len(fields))
	for _, field := range fields {
		value, ok := record[field].(string)
		if !ok || value == "" {
			continue
		}
		keys = append(keys, common.EntityKey{Field: field, Value: value})
	}
	return keys
}

// ExtractEntities turns a batch of records into a deduplicated set of typed
// entities. The first sighting of a (field, value) pair creates the entity;
// every repeat sighting increments its occurrence counter. Output order is
// first-seen order, so extraction is a pure function of the input batch.
func ExtractEntities(records []common.Record) []common.Entity {
	entities := make([]common.Entity, 0)
	index := make(map[common.EntityKey]int)

	for _, record := range records {
		for _, key := range recordEntityKeys(record) {
			if i, ok := index[key]; ok {
				entities[i].Occurrences++
				continue
			}
			index[key] = len(entities)
			entities = append(entities, common.Entity{
				Key:         key,
				Name:        key.Value,
				Type:        InferEntityType(key.Field, key.Value),
				Occurrences: 1,
			})
		}
	}

	return entities
}
