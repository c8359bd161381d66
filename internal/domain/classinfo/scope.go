package classinfo

// ScopeTracker follows the live local variables of one method during a
// single walk of its body. It must see labels in visit order.
type ScopeTracker struct {
	locals []LocalVarInfo
	live   []bool
}

// NewScopeTracker starts with no variable in scope.
func NewScopeTracker(locals []LocalVarInfo) *ScopeTracker {
	return &ScopeTracker{
		locals: locals,
		live:   make([]bool, len(locals)),
	}
}

// Transfer crosses the label with the given ordinal. Ranges ending there are
// killed before ranges starting there are generated, so a slot reused at the
// label resolves to the new variable. Negative ordinals are ignored.
func (s *ScopeTracker) Transfer(ordinal int) {
	if ordinal < 0 {
		return
	}

	for i, lv := range s.locals {
		if lv.End == ordinal {
			s.live[i] = false
		}
	}

	for i, lv := range s.locals {
		if lv.Start == ordinal && lv.End != ordinal {
			s.live[i] = true
		}
	}
}

// Find returns the live variable stored in slot.
func (s *ScopeTracker) Find(slot int) (LocalVarInfo, bool) {
	for i, lv := range s.locals {
		if s.live[i] && lv.Slot == slot {
			return lv, true
		}
	}

	return LocalVarInfo{}, false
}

// Pick returns the n-th live variable accepted by keep, in declared order.
func (s *ScopeTracker) Pick(n int, keep func(LocalVarInfo) bool) (LocalVarInfo, bool) {
	if n < 0 {
		return LocalVarInfo{}, false
	}

	for i, lv := range s.locals {
		if !s.live[i] || !keep(lv) {
			continue
		}

		if n == 0 {
			return lv, true
		}

		n--
	}

	return LocalVarInfo{}, false
}

// PickNth returns the (skip+n)-th live variable of type desc.
func (s *ScopeTracker) PickNth(desc string, skip, n int) (LocalVarInfo, bool) {
	return s.Pick(skip+n, func(lv LocalVarInfo) bool {
		return lv.Desc == desc
	})
}

// Visible lists the live variables in declared order.
func (s *ScopeTracker) Visible() []LocalVarInfo {
	var out []LocalVarInfo

	for i, lv := range s.locals {
		if s.live[i] {
			out = append(out, lv)
		}
	}

	return out
}
