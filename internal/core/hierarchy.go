package core

// TagHierarchy models parent/child tag relationships as an explicit adjacency
// list: parent id to ordered child ids. Traversal is index-based lookup, so
// there is no object graph with back-references to keep consistent.
type TagHierarchy struct {
	children map[string][]string
	parent   map[string]string
}

// NewTagHierarchy returns an empty hierarchy.
func NewTagHierarchy() *TagHierarchy {
	return &TagHierarchy{
		children: make(map[string][]string),
		parent:   make(map[string]string),
	}
}

// AddChild appends childID under parentID. Relationships carry an ordinal:
// insertion order is the ordinal order. Re-parenting replaces the previous
// relationship.
func (h *TagHierarchy) AddChild(parentID, childID string) {
	if prev, ok := h.parent[childID]; ok {
		h.children[prev] = removeID(h.children[prev], childID)
	}
	h.children[parentID] = append(h.children[parentID], childID)
	h.parent[childID] = parentID
}

// Children returns the ordered child ids of parentID.
func (h *TagHierarchy) Children(parentID string) []string {
	return h.children[parentID]
}

// Parent returns the parent id of childID, if any.
func (h *TagHierarchy) Parent(childID string) (string, bool) {
	p, ok := h.parent[childID]
	return p, ok
}

// IsChildOf reports whether childID sits directly under parentID.
func (h *TagHierarchy) IsChildOf(childID, parentID string) bool {
	p, ok := h.parent[childID]
	return ok && p == parentID
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
