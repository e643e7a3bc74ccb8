package search

import "github.com/optimal-sites/planner/internal/models"

// Resolution is the outcome of the service call made for Tag. Err is nil on
// success.
type Resolution struct {
	Tag       Tag
	Locations []models.Location
	Err       error
}

// Machine drives the search state. It is not safe for concurrent use; the
// controller owns it from a single goroutine.
type Machine struct {
	current State
	lastTag Tag
}

// NewMachine returns a Machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{current: Idle{}}
}

// Current returns the active state.
func (m *Machine) Current() State {
	return m.current
}

// Submit moves to Pending with a fresh tag from any state. A search that was
// already pending is superseded.
func (m *Machine) Submit(criteria models.SearchCriteria) Tag {
	m.lastTag++
	m.current = Pending{Tag: m.lastTag, Criteria: criteria}
	return m.lastTag
}

// Resolve applies r if it answers the current Pending search and reports
// whether the state changed. Anything else is a stale response and is
// dropped.
func (m *Machine) Resolve(r Resolution) bool {
	pending, ok := m.current.(Pending)
	if !ok || pending.Tag != r.Tag {
		return false
	}

	if r.Err != nil {
		m.current = Failed{Tag: pending.Tag, Criteria: pending.Criteria, Err: r.Err}
		return true
	}

	locations := r.Locations
	if locations == nil {
		locations = []models.Location{}
	}
	m.current = Succeeded{Tag: pending.Tag, Criteria: pending.Criteria, Locations: locations}
	return true
}
