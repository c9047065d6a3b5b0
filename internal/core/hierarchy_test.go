package core

import "testing"

func TestTagHierarchyAddChild(t *testing.T) {
	h := NewTagHierarchy()
	h.AddChild("food", "groceries")
	h.AddChild("food", "restaurants")

	children := h.Children("food")
	if len(children) != 2 || children[0] != "groceries" || children[1] != "restaurants" {
		t.Errorf("Children = %v, want [groceries restaurants]", children)
	}

	if p, ok := h.Parent("groceries"); !ok || p != "food" {
		t.Errorf("Parent(groceries) = %q, %v; want food, true", p, ok)
	}
	if _, ok := h.Parent("food"); ok {
		t.Error("root tag should have no parent")
	}
}

func TestTagHierarchyIsChildOf(t *testing.T) {
	h := NewTagHierarchy()
	h.AddChild("food", "groceries")
	h.AddChild("groceries", "produce")

	if !h.IsChildOf("groceries", "food") {
		t.Error("groceries should be a child of food")
	}
	if h.IsChildOf("produce", "food") {
		t.Error("IsChildOf is direct-parent only, not transitive")
	}
	if h.IsChildOf("food", "groceries") {
		t.Error("relationship is not symmetric")
	}
}

func TestTagHierarchyReparent(t *testing.T) {
	h := NewTagHierarchy()
	h.AddChild("food", "coffee")
	h.AddChild("drinks", "coffee")

	if h.IsChildOf("coffee", "food") {
		t.Error("re-parenting should remove the old relationship")
	}
	if !h.IsChildOf("coffee", "drinks") {
		t.Error("coffee should sit under drinks after re-parenting")
	}
	if len(h.Children("food")) != 0 {
		t.Errorf("food children = %v, want empty", h.Children("food"))
	}
}
