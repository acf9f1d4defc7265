package domain

import "time"

// State is the lifecycle state of a membership. Only the types in this file
// implement it, so a primary flag exists only on Active and an end time only
// on the ended states.
type State interface {
	Status() Status
	sealed()
}

// Active is a live membership, optionally the user's primary one.
type Active struct {
	Primary bool
}

// Cancelled is a membership ended by the user or an admin.
type Cancelled struct {
	EndedAt time.Time
}

// Expired is a membership whose subscription lapsed.
type Expired struct {
	EndedAt time.Time
}

// Inactive is a paused membership.
type Inactive struct {
	EndedAt time.Time
}

func (Active) Status() Status    { return StatusActive }
func (Cancelled) Status() Status { return StatusCancelled }
func (Expired) Status() Status   { return StatusExpired }
func (Inactive) Status() Status  { return StatusInactive }

func (Active) sealed()    {}
func (Cancelled) sealed() {}
func (Expired) sealed()   {}
func (Inactive) sealed()  {}

// endedAt returns the end instant of an ended state.
func endedAt(s State) (time.Time, bool) {
	switch st := s.(type) {
	case Cancelled:
		return st.EndedAt, true
	case Expired:
		return st.EndedAt, true
	case Inactive:
		return st.EndedAt, true
	}
	return time.Time{}, false
}

// endedState builds the ended state for status.
func endedState(status Status, at time.Time) (State, bool) {
	switch status {
	case StatusCancelled:
		return Cancelled{EndedAt: at}, true
	case StatusExpired:
		return Expired{EndedAt: at}, true
	case StatusInactive:
		return Inactive{EndedAt: at}, true
	}
	return nil, false
}

// stateFromRecord rebuilds a state from the stored columns.
func stateFromRecord(status Status, isPrimary bool, ended *time.Time) (State, bool) {
	if status == StatusActive {
		return Active{Primary: isPrimary}, true
	}
	if isPrimary || ended == nil {
		return nil, false
	}
	return endedState(status, ended.UTC())
}
