package catalog

import (
	"sort"
)

// Registry owns the schemas of one instance and the entities synthesized in each.
// Entities are also indexed by bare table name; when two schemas hold the same
// table name the most recently stored one wins that index.
// A Registry is not safe for concurrent use.
type Registry[E any] struct {
	schemas  map[string]*SchemaMetadata
	entities map[string]map[string]E
	byName   map[string]string
	current  string
}

// NewRegistry returns an empty registry
func NewRegistry[E any]() *Registry[E] {
	return &Registry[E]{
		schemas:  make(map[string]*SchemaMetadata),
		entities: make(map[string]map[string]E),
		byName:   make(map[string]string),
	}
}

// AddSchema registers metadata under its logical name, replacing any previous one
func (r *Registry[E]) AddSchema(meta *SchemaMetadata) {
	r.schemas[meta.Name] = meta
	if _, ok := r.entities[meta.Name]; !ok {
		r.entities[meta.Name] = make(map[string]E)
	}
}

// Schema looks up metadata by logical name
func (r *Registry[E]) Schema(name string) (*SchemaMetadata, bool) {
	meta, ok := r.schemas[name]
	return meta, ok
}

// Schemas returns the logical schema names, sorted
func (r *Registry[E]) Schemas() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveSchema drops a schema together with its entities. Name index entries fall
// back to other schemas like Remove does.
func (r *Registry[E]) RemoveSchema(name string) {
	tables := r.entities[name]
	delete(r.entities, name)
	delete(r.schemas, name)
	for table := range tables {
		if r.byName[table] == name {
			r.reindex(table)
		}
	}
	if r.current == name {
		r.current = ""
	}
}

// SetCurrent makes a registered schema the current one
func (r *Registry[E]) SetCurrent(name string) bool {
	if _, ok := r.schemas[name]; !ok {
		return false
	}
	r.current = name
	return true
}

// Current returns the current schema, if any
func (r *Registry[E]) Current() (*SchemaMetadata, bool) {
	if r.current == "" {
		return nil, false
	}
	return r.Schema(r.current)
}

// Put stores an entity for a table of a registered schema
func (r *Registry[E]) Put(schemaName, table string, entity E) bool {
	entities, ok := r.entities[schemaName]
	if !ok {
		return false
	}
	entities[table] = entity
	r.byName[table] = schemaName
	return true
}

// Get looks an entity up by bare table name
func (r *Registry[E]) Get(table string) (E, bool) {
	schemaName, ok := r.byName[table]
	if !ok {
		var zero E
		return zero, false
	}
	return r.GetIn(schemaName, table)
}

// GetIn looks an entity up within one schema
func (r *Registry[E]) GetIn(schemaName, table string) (E, bool) {
	entity, ok := r.entities[schemaName][table]
	return entity, ok
}

// Remove discards an entity. The name index falls back to another schema holding
// the same table name, if there is one.
func (r *Registry[E]) Remove(schemaName, table string) {
	delete(r.entities[schemaName], table)
	if r.byName[table] == schemaName {
		r.reindex(table)
	}
}

// reindex points the name index at the first schema, by name, still holding table
func (r *Registry[E]) reindex(table string) {
	delete(r.byName, table)
	for _, other := range r.Schemas() {
		if _, ok := r.entities[other][table]; ok {
			r.byName[table] = other
			return
		}
	}
}

// Tables returns the entity table names of one schema, sorted
func (r *Registry[E]) Tables(schemaName string) []string {
	names := make([]string, 0, len(r.entities[schemaName]))
	for name := range r.entities[schemaName] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
