package dataset

// Builder assembles a new Dataset. It never touches the Dataset it was
// started from.
type Builder struct {
	groups   map[string]Group
	metadata map[string]any
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		groups:   make(map[string]Group),
		metadata: make(map[string]any),
	}
}

// From returns a Builder seeded with d's groups and metadata.
func From(d *Dataset) *Builder {
	b := NewBuilder()
	if d == nil {
		return b
	}
	for name, g := range d.groups {
		b.groups[name] = g
	}
	for k, v := range d.metadata {
		b.metadata[k] = v
	}
	return b
}

// SetGroup adds or replaces a group.
func (b *Builder) SetGroup(name string, g Group) *Builder {
	b.groups[name] = g
	return b
}

// RemoveGroup drops a group.
func (b *Builder) RemoveGroup(name string) *Builder {
	delete(b.groups, name)
	return b
}

// ClearGroups drops every group, keeping metadata.
func (b *Builder) ClearGroups() *Builder {
	b.groups = make(map[string]Group)
	return b
}

// SetMeta sets a metadata value.
func (b *Builder) SetMeta(key string, value any) *Builder {
	b.metadata[key] = value
	return b
}

// Build returns the new Dataset.
func (b *Builder) Build() *Dataset {
	return New(b.groups, b.metadata)
}
