package realtime

// Recorder receives protocol counters. Any method may be called concurrently.
type Recorder interface {
	RealtimeEvent(direction, eventType string)
	Handshake(ok bool)
}

func record(r Recorder, direction, eventType string) {
	if r != nil {
		r.RealtimeEvent(direction, eventType)
	}
}
