package orch

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/relay/internal/app"
	"github.com/campushub/relay/internal/app/presence"
	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

var _ app.Presence = (*presence.Mirror)(nil)

type fakeConn struct {
	mu     sync.Mutex
	frames []string
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(f))
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var d struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal([]byte(f), &d)
		out = append(out, d.Type)
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type presenceLog struct {
	mu      sync.Mutex
	entries []string
}

func (p *presenceLog) add(e string) {
	p.mu.Lock()
	p.entries = append(p.entries, e)
	p.mu.Unlock()
}

func (p *presenceLog) MemberJoined(room domain.RoomID, u domain.User) {
	p.add("joined " + string(room) + " " + string(u.ID))
}

func (p *presenceLog) MemberLeft(room domain.RoomID, id domain.UserID) {
	p.add("left " + string(room) + " " + string(id))
}

func (p *presenceLog) StreamChanged(room domain.RoomID, info core.StreamInfo, live bool) {
	if live {
		p.add("live " + string(room) + " " + string(info.Host.ID))
		return
	}
	p.add("idle " + string(room))
}

type world struct {
	o     *Orchestrator
	conns map[core.ConnID]*fakeConn
}

func newWorld(t *testing.T, ids ...core.ConnID) *world {
	t.Helper()
	w := &world{o: New(Options{}), conns: make(map[core.ConnID]*fakeConn)}
	for _, id := range ids {
		c := &fakeConn{}
		w.conns[id] = c
		w.o.Connect(id, c, func() {})
		c.reset()
	}
	return w
}

func (w *world) reset() {
	for _, c := range w.conns {
		c.reset()
	}
}

func count(types []string, ev string) int {
	n := 0
	for _, t := range types {
		if t == ev {
			n++
		}
	}
	return n
}

func TestConnectSendsWelcome(t *testing.T) {
	ice := []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	o := New(Options{ICEServers: ice})
	c := &fakeConn{}
	o.Connect("c1", c, nil)

	require.Equal(t, []string{core.EventWelcome}, c.types())
	var frame struct {
		Data struct {
			ConnectionID string `json:"connectionId"`
			ICEServers   []struct {
				URLs []string `json:"urls"`
			} `json:"iceServers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(c.frames[0]), &frame))
	assert.Equal(t, "c1", frame.Data.ConnectionID)
	require.Len(t, frame.Data.ICEServers, 1)
	assert.Equal(t, ice[0].URLs, frame.Data.ICEServers[0].URLs)
}

// A teaches, B attends the room, C and D only watch.
func TestTeardownBroadcasterEndsStreamForEveryone(t *testing.T) {
	w := newWorld(t, "a", "b", "c", "d")
	_, err := w.o.Members.Join("R1", "a", "A", "Alice")
	require.NoError(t, err)
	_, err = w.o.Members.Join("R1", "b", "B", "Bob")
	require.NoError(t, err)
	_, err = w.o.Streams.Start("R1", "a", "A", "Alice", "Lecture")
	require.NoError(t, err)
	viewers := map[core.ConnID]domain.UserID{"b": "B", "c": "C", "d": "D"}
	for conn, user := range viewers {
		_, err = w.o.Streams.JoinStream("R1", conn, user, "")
		require.NoError(t, err)
	}
	w.reset()

	w.o.Teardown("a")

	for _, v := range []core.ConnID{"b", "c", "d"} {
		assert.Equal(t, 1, count(w.conns[v].types(), core.EventStreamEnded), "conn %s", v)
	}
	assert.Equal(t, []string{core.EventStreamEnded, core.EventUserLeftRoom}, w.conns["b"].types())

	_, err = w.o.Streams.Info("R1")
	assert.ErrorIs(t, err, core.ErrNoActiveStream)
	members, err := w.o.Members.MembersOf("R1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.UserID("B"), members[0].UserID)
}

func TestTeardownReportsPresenceInRoomOrder(t *testing.T) {
	plog := &presenceLog{}
	o := New(Options{Presence: plog})
	for _, id := range []core.ConnID{"a", "b"} {
		o.Connect(id, &fakeConn{}, nil)
	}
	_, err := o.Members.Join("R1", "a", "A", "Alice")
	require.NoError(t, err)
	_, err = o.Streams.Start("R1", "a", "A", "Alice", "Lecture")
	require.NoError(t, err)
	_, err = o.Streams.JoinStream("R1", "b", "B", "Bob")
	require.NoError(t, err)

	o.Teardown("a")
	o.Teardown("b")

	assert.Equal(t, []string{
		"joined R1 A",
		"live R1 A",
		"live R1 A",
		"idle R1",
		"left R1 A",
	}, plog.entries)
	assert.Empty(t, o.Rooms.List())
}

func TestTeardownViewerNotifiesHost(t *testing.T) {
	w := newWorld(t, "a", "c")
	_, err := w.o.Streams.Start("R1", "a", "A", "Alice", "Lecture")
	require.NoError(t, err)
	_, err = w.o.Streams.JoinStream("R1", "c", "C", "Carol")
	require.NoError(t, err)
	w.reset()

	w.o.Teardown("c")

	assert.Equal(t, []string{core.EventViewerLeft}, w.conns["a"].types())
	info, err := w.o.Streams.Info("R1")
	require.NoError(t, err)
	assert.Empty(t, info.Viewers)
}

func TestTeardownIsIdempotent(t *testing.T) {
	w := newWorld(t, "a", "b")
	_, err := w.o.Members.Join("R1", "a", "A", "Alice")
	require.NoError(t, err)
	_, err = w.o.Members.Join("R1", "b", "B", "Bob")
	require.NoError(t, err)
	w.reset()

	w.o.Teardown("b")
	w.o.Teardown("b")

	assert.Equal(t, []string{core.EventUserLeftRoom}, w.conns["a"].types())
	assert.Equal(t, 1, w.o.Registry.Count())
}

func TestTeardownForgetsEmptyRoom(t *testing.T) {
	w := newWorld(t, "a")
	_, err := w.o.Members.Join("R1", "a", "A", "Alice")
	require.NoError(t, err)
	_, err = w.o.Streams.Start("R1", "a", "A", "Alice", "x")
	require.NoError(t, err)

	w.o.Teardown("a")
	assert.Empty(t, w.o.Rooms.List())
}

func TestSignalToTornDownConnIsDropped(t *testing.T) {
	w := newWorld(t, "a", "b")
	_, err := w.o.Members.Join("R1", "a", "A", "Alice")
	require.NoError(t, err)
	w.o.Teardown("b")
	w.reset()

	err = w.o.Relay.Relay(core.Envelope{From: "a", To: "b", Kind: core.KindOffer, Signal: json.RawMessage(`{"sdp":"x"}`)})
	require.NoError(t, err)
	assert.Empty(t, w.conns["a"].types())
	assert.Empty(t, w.conns["b"].types())
}

func TestConcurrentTeardownAndJoin(t *testing.T) {
	w := newWorld(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		id := core.ConnID(string(rune('a' + i)))
		c := &fakeConn{}
		w.o.Connect(id, c, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.o.Members.Join("R1", id, domain.UserID(id), "")
			assert.NoError(t, err)
			w.o.Teardown(id)
		}()
	}
	wg.Wait()
	assert.Empty(t, w.o.Rooms.List())
	assert.Zero(t, w.o.Registry.Count())
}
