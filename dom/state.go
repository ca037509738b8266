package dom

const (
	// StateAttr is the attribute holding the link processing state
	StateAttr = "data-linkswap-state"
	// OriginalAttr is the attribute holding the link target before a rewrite
	OriginalAttr = "data-linkswap-original"
	// HrefAttr is the primary link attribute
	HrefAttr = "href"
)

// State represents the link processing state of an element
type State string

const (
	// StateUnprocessed represents an element the link processor never saw
	StateUnprocessed State = ""
	// StateProcessing represents an element with a check in flight
	StateProcessing State = "processing"
	// StateRewritten represents a finalized element pointing at the alternate site
	StateRewritten State = "rewritten"
	// StateKept represents a finalized element left at its original target
	StateKept State = "kept"
)

// Finalized returns true for the terminal states
func (s State) Finalized() bool {
	return s == StateRewritten || s == StateKept
}

// State returns the link processing state of the element
func (e *Element) State() State {
	v, _ := e.Attr(StateAttr)
	return State(v)
}

// Claim moves an unprocessed element into processing
// It returns false, leaving the element untouched, when the element is
// already processing or finalized.
func (e *Element) Claim() bool {
	e.d.m.Lock()
	defer e.d.m.Unlock()

	if v, ok := getAttr(e.n, StateAttr); ok && State(v) != StateUnprocessed {
		return false
	}
	setAttr(e.n, StateAttr, string(StateProcessing))

	return true
}

// Rewrite points the element at target, keeping original for inspection, and
// finalizes it
// It returns false when the element was not processing.
func (e *Element) Rewrite(target, original string) bool {
	e.d.m.Lock()
	defer e.d.m.Unlock()

	if v, _ := getAttr(e.n, StateAttr); State(v) != StateProcessing {
		return false
	}
	setAttr(e.n, HrefAttr, target)
	setAttr(e.n, OriginalAttr, original)
	setAttr(e.n, StateAttr, string(StateRewritten))

	return true
}

// Keep finalizes the element without touching its target
// It returns false when the element was not processing.
func (e *Element) Keep() bool {
	e.d.m.Lock()
	defer e.d.m.Unlock()

	if v, _ := getAttr(e.n, StateAttr); State(v) != StateProcessing {
		return false
	}
	setAttr(e.n, StateAttr, string(StateKept))

	return true
}
