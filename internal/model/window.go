package model

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds the window that starts at start and lasts d.  Times
// are normalised to UTC and truncated to whole seconds, the precision of
// the DATETIME columns bookings are stored in.
func NewWindow(start time.Time, d time.Duration) Window {
	start = start.UTC().Truncate(time.Second)
	return Window{Start: start, End: start.Add(d)}
}

// Valid reports whether the window has a positive length.
func (w Window) Valid() bool { return w.End.After(w.Start) }

// Overlaps reports whether w and o share at least one instant.  Adjacent
// windows (w.End == o.Start) do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}
