package core

// TagSet is a deduplicated collection of tags keyed by tag id. Insertion
// order is preserved so that repeated runs over the same input yield the same
// ordering. The zero value is ready to use.
type TagSet struct {
	tags []Tag
	ids  map[string]struct{}
}

// NewTagSet builds a set from the given tags, dropping duplicates.
func NewTagSet(tags ...Tag) TagSet {
	var s TagSet
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Add inserts a tag unless a tag with the same id is already present.
// Reports whether the tag was inserted.
func (s *TagSet) Add(t Tag) bool {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[t.ID]; ok {
		return false
	}
	s.ids[t.ID] = struct{}{}
	s.tags = append(s.tags, t)
	return true
}

// Union inserts every tag of other, preserving the receiver's existing order.
func (s *TagSet) Union(other TagSet) {
	for _, t := range other.tags {
		s.Add(t)
	}
}

// Contains reports whether a tag with the given id is present.
func (s *TagSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of distinct tags.
func (s *TagSet) Len() int {
	return len(s.tags)
}

// Tags returns the tags in insertion order. The returned slice is shared;
// callers must not mutate it.
func (s *TagSet) Tags() []Tag {
	return s.tags
}

// IDs returns the tag ids in insertion order.
func (s *TagSet) IDs() []string {
	out := make([]string, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, t.ID)
	}
	return out
}
