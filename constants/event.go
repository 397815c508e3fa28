package constants

// Event Queue
const (
	// EventQueueSize is the number of undrained events a display queue holds before dropping the oldest
	EventQueueSize = 256
)
