package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

// fakeConn records decoded frames and can simulate a full buffer.
type fakeConn struct {
	mu     sync.Mutex
	frames []string
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, string(f))
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type presenceCall struct {
	kind string
	room domain.RoomID
	user domain.UserID
	live bool
}

type recordingPresence struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (p *recordingPresence) MemberJoined(room domain.RoomID, u domain.User) {
	p.add(presenceCall{kind: "joined", room: room, user: u.ID})
}

func (p *recordingPresence) MemberLeft(room domain.RoomID, id domain.UserID) {
	p.add(presenceCall{kind: "left", room: room, user: id})
}

func (p *recordingPresence) StreamChanged(room domain.RoomID, info core.StreamInfo, live bool) {
	p.add(presenceCall{kind: "stream", room: room, user: info.Host.ID, live: live})
}

func (p *recordingPresence) add(c presenceCall) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
}

func (p *recordingPresence) snapshot() []presenceCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]presenceCall(nil), p.calls...)
}

type harness struct {
	reg      *Registry
	rooms    core.RoomManager
	members  *Membership
	streams  *Streams
	relay    *Relay
	presence *recordingPresence
	conns    map[core.ConnID]*fakeConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := NewRegistry()
	pub := NewDispatcher(reg, SimplePolicy{})
	p := &recordingPresence{}
	rooms := NewRoomManager(pub, p)
	streams := NewStreams(reg, rooms)
	return &harness{
		reg:      reg,
		rooms:    rooms,
		members:  NewMembership(reg, rooms),
		streams:  streams,
		relay:    NewRelay(reg, streams, pub),
		presence: p,
		conns:    make(map[core.ConnID]*fakeConn),
	}
}

func (h *harness) connect(ids ...core.ConnID) {
	for _, id := range ids {
		c := &fakeConn{}
		h.conns[id] = c
		h.reg.Attach(id, c, nil)
	}
}

func (h *harness) join(t *testing.T, room domain.RoomID, conn core.ConnID, user domain.UserID) {
	t.Helper()
	_, err := h.members.Join(room, conn, user, string(user))
	require.NoError(t, err)
}

// types lists the event types conn received, in order.
func (h *harness) types(conn core.ConnID) []string {
	var out []string
	for _, f := range h.conns[conn].sent() {
		out = append(out, frameType(f))
	}
	return out
}

func (h *harness) resetAll() {
	for _, c := range h.conns {
		c.reset()
	}
}

type decodedFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func frameType(f string) string {
	var d decodedFrame
	_ = json.Unmarshal([]byte(f), &d)
	return d.Type
}

func frameData(f string, v any) error {
	var d decodedFrame
	if err := json.Unmarshal([]byte(f), &d); err != nil {
		return err
	}
	return json.Unmarshal(d.Data, v)
}
