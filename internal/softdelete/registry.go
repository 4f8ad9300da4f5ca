package softdelete

import (
	"errors"
	"fmt"
	"sort"
)

// Entity describes one soft-deletable table: the tag recorded in audit
// entries, the table it lives in and its primary id column.
type Entity struct {
	Tag      string
	Table    string
	IDColumn string
}

var ErrUnknownEntity = errors.New("entity type is not registered")

// Registry is the fixed set of entity types the lifecycle engine may touch.
// It is built once at startup; a tag that is not here aborts a purge sweep
// instead of guessing at table names.
type Registry struct {
	entities map[string]Entity
}

func NewRegistry(entities ...Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]Entity, len(entities))}
	for _, e := range entities {
		if e.Tag == "" || e.Table == "" || e.IDColumn == "" {
			return nil, fmt.Errorf("entity registration requires tag, table and id column: %+v", e)
		}
		if _, ok := r.entities[e.Tag]; ok {
			return nil, fmt.Errorf("duplicate entity tag %q", e.Tag)
		}
		r.entities[e.Tag] = e
	}
	return r, nil
}

func (r *Registry) Lookup(tag string) (Entity, error) {
	e, ok := r.entities[tag]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %q", ErrUnknownEntity, tag)
	}
	return e, nil
}

func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.entities))
	for tag := range r.entities {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
