// Package search holds the lifecycle of the single live siting search.
package search

import "github.com/optimal-sites/planner/internal/models"

// Tag identifies one submitted search. Tags increase monotonically.
type Tag uint64

// Phase names the active variant of a State.
type Phase string

// Phases of a search.
const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// State is one of Idle, Pending, Succeeded or Failed.
type State interface {
	Phase() Phase
	state()
}

// Idle is the state before the first submit.
type Idle struct{}

// Pending is a submitted search waiting for the service.
type Pending struct {
	Tag      Tag
	Criteria models.SearchCriteria
}

// Succeeded holds the sites returned for Criteria. Locations may be empty.
type Succeeded struct {
	Tag       Tag
	Criteria  models.SearchCriteria
	Locations []models.Location
}

// Failed holds the error returned for Criteria.
type Failed struct {
	Tag      Tag
	Criteria models.SearchCriteria
	Err      error
}

func (Idle) Phase() Phase      { return PhaseIdle }
func (Pending) Phase() Phase   { return PhasePending }
func (Succeeded) Phase() Phase { return PhaseSucceeded }
func (Failed) Phase() Phase    { return PhaseFailed }

func (Idle) state()      {}
func (Pending) state()   {}
func (Succeeded) state() {}
func (Failed) state()    {}

// Locations returns the sites to display for s: the Succeeded payload, or
// nothing for every other state.
func Locations(s State) []models.Location {
	if st, ok := s.(Succeeded); ok {
		return st.Locations
	}
	return nil
}

// TagOf returns the tag carried by s, or zero for Idle.
func TagOf(s State) Tag {
	switch st := s.(type) {
	case Pending:
		return st.Tag
	case Succeeded:
		return st.Tag
	case Failed:
		return st.Tag
	default:
		return 0
	}
}

// CriteriaOf returns the criteria carried by s.
func CriteriaOf(s State) (models.SearchCriteria, bool) {
	switch st := s.(type) {
	case Pending:
		return st.Criteria, true
	case Succeeded:
		return st.Criteria, true
	case Failed:
		return st.Criteria, true
	default:
		return models.SearchCriteria{}, false
	}
}
