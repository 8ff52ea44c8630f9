package tracker

// Report summarises the outcome of a single merge step
type Report struct {
	// Matched is the number of candidates absorbed into existing objects
	Matched int
	// Created is the number of new objects registered
	Created int
	// CarriedOver is the number of objects that went unmatched this frame
	// and kept their previous pixels
	CarriedOver int
	// Engulfed is the number of candidates discarded for being mostly
	// covered by an object they did not match
	Engulfed int
	// Discarded is the total number of candidates dropped without becoming
	// or joining an object, engulfed and limit discards included
	Discarded int
	// LimitHit reports that admitting this frame's candidates would have
	// exceeded the population limit and the whole set was discarded
	LimitHit bool
	// Active is the number of objects holding pixels in the returned mask
	Active int
}
