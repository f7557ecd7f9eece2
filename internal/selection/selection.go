// Package selection implements the anchor-based selection model for one
// review list. It is pure state: no rendering, no queue access.
package selection

// State holds the selected ids and the range anchor for a single list.
// The zero value is an empty selection.
type State struct {
	selected map[string]struct{}
	anchor   string
	anchorAt int
}

// New returns an empty selection.
func New() *State {
	return &State{selected: map[string]struct{}{}}
}

// Selected reports whether id is selected.
func (s *State) Selected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// IDs returns the selected ids in the order they appear in list.
func (s *State) IDs(list []string) []string {
	out := make([]string, 0, len(s.selected))
	for _, id := range list {
		if s.Selected(id) {
			out = append(out, id)
		}
	}
	return out
}

// Count returns the number of selected ids.
func (s *State) Count() int {
	return len(s.selected)
}

// Anchor returns the current anchor id, empty when none.
func (s *State) Anchor() string {
	return s.anchor
}

func (s *State) setAnchor(id string, list []string) {
	s.anchor = id
	s.anchorAt = indexOf(list, id)
}

// Toggle flips membership of id and moves the anchor to it.
func (s *State) Toggle(id string, list []string) {
	if s.Selected(id) {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	s.setAnchor(id, list)
}

// Range selects (union, never replace) every id between the anchor and the
// clicked index, inclusive. Without an anchor the range starts at index 0
// and the clicked item becomes the anchor; an existing anchor stays put so
// repeated shift-clicks extend from a stable origin.
func (s *State) Range(clicked int, list []string) {
	if clicked < 0 || clicked >= len(list) {
		return
	}
	start := 0
	if s.anchor != "" {
		if i := indexOf(list, s.anchor); i >= 0 {
			start = i
		}
	} else {
		s.setAnchor(list[clicked], list)
	}

	lo, hi := start, clicked
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, id := range list[lo : hi+1] {
		s.selected[id] = struct{}{}
	}
}

// ToggleGroup selects every listed member of a chain, or deselects them all
// when every member is already selected. The clicked id becomes the anchor.
func (s *State) ToggleGroup(clickedID string, members []string, list []string) {
	if len(members) == 0 {
		return
	}
	all := true
	for _, id := range members {
		if !s.Selected(id) {
			all = false
			break
		}
	}
	for _, id := range members {
		if all {
			delete(s.selected, id)
		} else {
			s.selected[id] = struct{}{}
		}
	}
	s.setAnchor(clickedID, list)
}

// SelectAll selects every id in list. The anchor is left as is.
func (s *State) SelectAll(list []string) {
	for _, id := range list {
		s.selected[id] = struct{}{}
	}
}

// Clear empties the selection. The anchor is left as is.
func (s *State) Clear() {
	s.selected = map[string]struct{}{}
}

// Sync reconciles the selection with the list after a membership or order
// change: ids no longer present are dropped, and the anchor is reset when
// it left the list or moved to a different index. A stale anchor would make
// the next range-select compute against the wrong origin.
func (s *State) Sync(list []string) {
	present := make(map[string]struct{}, len(list))
	for _, id := range list {
		present[id] = struct{}{}
	}
	for id := range s.selected {
		if _, ok := present[id]; !ok {
			delete(s.selected, id)
		}
	}
	if s.anchor != "" {
		if i := indexOf(list, s.anchor); i < 0 || i != s.anchorAt {
			s.anchor = ""
			s.anchorAt = -1
		}
	}
}

func indexOf(list []string, id string) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}
