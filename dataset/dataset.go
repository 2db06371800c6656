package dataset

import (
	"reflect"
	"slices"
	"sort"

	"github.com/google/uuid"
)

// Dataset is an immutable, versioned snapshot of named groups plus metadata.
type Dataset struct {
	id       uuid.UUID
	version  uint64
	groups   map[string]Group
	metadata map[string]any
	lineage  []string
}

// New creates a Dataset at version 0 with a fresh identity.
func New(groups map[string]Group, metadata map[string]any) *Dataset {
	d := &Dataset{
		id:       uuid.New(),
		groups:   make(map[string]Group, len(groups)),
		metadata: make(map[string]any, len(metadata)),
	}
	for name, g := range groups {
		d.groups[name] = g
	}
	for k, v := range metadata {
		d.metadata[k] = v
	}
	return d
}

// Empty returns a Dataset with no groups.
func Empty() *Dataset {
	return New(nil, nil)
}

// Derive returns a new Dataset with the receiver's contents, a fresh identity,
// the parent's version plus one and the parent's lineage extended by op.
// Group contents are shared, not copied.
func (d *Dataset) Derive(parent *Dataset, op string) *Dataset {
	out := &Dataset{
		id:       uuid.New(),
		groups:   d.groups,
		metadata: d.metadata,
	}
	if parent != nil {
		out.version = parent.version + 1
		out.lineage = slices.Clone(parent.lineage)
	}
	if op != "" {
		out.lineage = append(out.lineage, op)
	}
	return out
}

// ID returns the identity of this Dataset instance.
func (d *Dataset) ID() uuid.UUID { return d.id }

// Version returns the number of derivations since the dataset was loaded.
func (d *Dataset) Version() uint64 { return d.version }

// Lineage returns the names of the operations that produced this dataset, oldest first.
func (d *Dataset) Lineage() []string { return slices.Clone(d.lineage) }

// HasApplied reports whether op appears in the lineage.
func (d *Dataset) HasApplied(op string) bool { return slices.Contains(d.lineage, op) }

// Len returns the number of groups.
func (d *Dataset) Len() int { return len(d.groups) }

// Group returns the named group.
func (d *Dataset) Group(name string) (Group, bool) {
	g, ok := d.groups[name]
	return g, ok
}

// GroupNames returns the sorted group names.
func (d *Dataset) GroupNames() []string {
	names := make([]string, 0, len(d.groups))
	for name := range d.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Groups returns a copy of the name to group mapping.
func (d *Dataset) Groups() map[string]Group {
	out := make(map[string]Group, len(d.groups))
	for name, g := range d.groups {
		out[name] = g
	}
	return out
}

// Meta returns a metadata value.
func (d *Dataset) Meta(key string) (any, bool) {
	v, ok := d.metadata[key]
	return v, ok
}

// Metadata returns a copy of the metadata mapping.
func (d *Dataset) Metadata() map[string]any {
	out := make(map[string]any, len(d.metadata))
	for k, v := range d.metadata {
		out[k] = v
	}
	return out
}

// Shape maps each group name to its sorted array names.
func (d *Dataset) Shape() map[string][]string {
	shape := make(map[string][]string, len(d.groups))
	for name, g := range d.groups {
		shape[name] = g.ArrayNames()
	}
	return shape
}

// Equal reports whether both datasets hold equal groups and metadata.
// Identity, version and lineage are not compared.
func (d *Dataset) Equal(o *Dataset) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.groups) != len(o.groups) {
		return false
	}
	for name, g := range d.groups {
		h, ok := o.groups[name]
		if !ok || !g.Equal(h) {
			return false
		}
	}
	return reflect.DeepEqual(d.metadata, o.metadata)
}

// Equal reports whether a and b hold equal contents.
func Equal(a, b *Dataset) bool { return a.Equal(b) }
