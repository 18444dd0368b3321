package orch

import (
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

// Teardown forgets conn and removes it from its room, the stream it hosts
// and every stream it watches. Calling it twice is a no-op.
func (o *Orchestrator) Teardown(conn core.ConnID) {
	snap, ok := o.Registry.Detach(conn)
	if !ok {
		return
	}
	rooms := snap.Streams
	if snap.RoomID != "" && !slices.Contains(rooms, snap.RoomID) {
		rooms = append(rooms, snap.RoomID)
	}

	var dropped core.DropResult
	for _, id := range rooms {
		res := o.drop(id, conn)
		dropped.LeftRoom = dropped.LeftRoom || res.LeftRoom
		dropped.EndedStream = dropped.EndedStream || res.EndedStream
		dropped.LeftStream = dropped.LeftStream || res.LeftStream
	}
	log.Info().Str("module", "orch").Str("conn", string(conn)).Str("user", string(snap.User.ID)).
		Bool("left_room", dropped.LeftRoom).Bool("ended_stream", dropped.EndedStream).
		Bool("left_stream", dropped.LeftStream).Msg("connection torn down")
}

func (o *Orchestrator) drop(id domain.RoomID, conn core.ConnID) core.DropResult {
	room, ok := o.Rooms.Get(id)
	if !ok {
		return core.DropResult{}
	}
	res := room.Drop(conn)
	o.Rooms.Release(id)
	return res
}
