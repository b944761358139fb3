package application

import "expvar"

// eventStats is exposed on /debug/vars under "user_events".
var eventStats = expvar.NewMap("user_events")

const (
	statRegistered = "registered"
	statPublished  = "published"
	statFailed     = "publish_failed"
	statQueued     = "outbox_queued"
)
