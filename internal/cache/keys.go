package cache

import "fmt"

// Key namespace shared by the read path and the ranking engine.
// Everything under "events:" is dropped on any inventory write, including
// top-N snapshots. The ranking set, view counters and generation keys live
// outside it.
const (
	EventListKey      = "events:all"
	EventsPattern     = "events:*"
	RankingKey        = "ranking:event_views"
	eventKeyFmt       = "event:%s"
	topKeyFmt         = "events:top:%d"
	viewCounterKeyFmt = "event:views:%s"

	// EventsGenKey guards fills of every "events:*" key
	EventsGenKey   = "gen:events"
	eventGenKeyFmt = "event:gen:%s"
)

// EventKey is the detail cache key for an event
func EventKey(id string) string {
	return fmt.Sprintf(eventKeyFmt, id)
}

// TopKey is the cache key for a top-n snapshot
func TopKey(n int) string {
	return fmt.Sprintf(topKeyFmt, n)
}

// ViewCounterKey is the rolling view counter for an event
func ViewCounterKey(id string) string {
	return fmt.Sprintf(viewCounterKeyFmt, id)
}

// EventGenKey guards fills of the event's detail key
func EventGenKey(id string) string {
	return fmt.Sprintf(eventGenKeyFmt, id)
}
