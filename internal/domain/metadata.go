package domain

import "maps"

// Metadata is an open-ended set of annotations. Values are never
// interpreted by this package.
type Metadata map[string]any

// Clone returns a shallow copy. A nil map stays nil.
func (m Metadata) Clone() Metadata {
	return maps.Clone(m)
}

// Merge returns a new map holding the keys of m overlaid with the keys of
// other. Keys present in both take the value from other.
func (m Metadata) Merge(other Metadata) Metadata {
	if m == nil && other == nil {
		return nil
	}
	out := make(Metadata, len(m)+len(other))
	maps.Copy(out, m)
	maps.Copy(out, other)
	return out
}
