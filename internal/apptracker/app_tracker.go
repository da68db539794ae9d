package apptracker

// AppTracker reports failures nobody anticipated, the ones that cannot be classified for the user.
type AppTracker interface {
	CaptureMessage(message string)
	CaptureException(exception error, tags map[string]string)
	// Flush blocks until buffered events are sent or the tracker's flush timeout elapses.
	Flush()
}
