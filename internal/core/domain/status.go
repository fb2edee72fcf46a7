package domain

// Resolve derives the observable status of a sale at the given unix time.
// A terminal outcome dominates the time window, and a future start takes
// priority over an elapsed end.
func Resolve(s *Sale, now int64) SaleStatus {
	switch s.Outcome {
	case OutcomeComplete:
		return StatusComplete
	case OutcomeCanceled:
		return StatusCanceled
	}
	if s.Start != 0 && now < s.Start {
		return StatusPending
	}
	if s.End != 0 && now > s.End {
		return StatusTimedOut
	}
	return StatusActive
}
