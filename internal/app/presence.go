package app

import "github.com/campushub/relay/internal/core"

// Presence mirrors membership and stream changes somewhere outside the
// process. Rooms call it while locked, so it must only enqueue.
type Presence = core.RoomObserver

// NopPresence is used when no mirror is configured.
type NopPresence = core.NopObserver
