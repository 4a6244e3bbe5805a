// Package song provides the Ref domain entity.
package song

import "github.com/samber/lo"

// Ref identifies a playable track.
// Immutable once fetched from a catalog.
type Ref struct {
	ID    string `json:"id"`    // External video/track ID
	Title string `json:"title"` // Display title
}

// IsZero reports whether the reference carries no ID.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

// IDs returns the IDs of the given refs in order.
func IDs(refs []Ref) []string {
	return lo.Map(refs, func(r Ref, _ int) string { return r.ID })
}

// Dedupe drops refs without an ID and keeps only the first ref for each ID.
func Dedupe(refs []Ref) []Ref {
	valid := lo.Filter(refs, func(r Ref, _ int) bool { return !r.IsZero() })
	return lo.UniqBy(valid, func(r Ref) string { return r.ID })
}

// ContainsID reports whether any ref has the given ID.
func ContainsID(refs []Ref, id string) bool {
	return lo.ContainsBy(refs, func(r Ref) bool { return r.ID == id })
}
