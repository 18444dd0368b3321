package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

//go:generate mockgen -destination=mocks/store_mock.go -package=mocks . Store

// Store mirrors room membership and live streams for readers outside the
// relay process. It is never read back by the relay itself.
type Store interface {
	Reset(ctx context.Context) error
	AddMember(ctx context.Context, room domain.RoomID, u domain.User) error
	RemoveMember(ctx context.Context, room domain.RoomID, id domain.UserID) error
	SetStream(ctx context.Context, room domain.RoomID, info core.StreamInfo) error
	ClearStream(ctx context.Context, room domain.RoomID) error
}

// RedisStore keeps a set of active rooms plus, per room, a members hash
// (userId -> userName) and a stream hash.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore builds a presence store backed by Redis. Prefix is optional (e.g. "campus:relay").
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "relay"
	}
	return &RedisStore{rdb: rdb, prefix: p}
}

func (s *RedisStore) keyRooms() string { return fmt.Sprintf("%s:rooms", s.prefix) }

func (s *RedisStore) keyMembers(room domain.RoomID) string {
	return fmt.Sprintf("%s:room:%s:members", s.prefix, room)
}

func (s *RedisStore) keyStream(room domain.RoomID) string {
	return fmt.Sprintf("%s:room:%s:stream", s.prefix, room)
}

// Reset drops everything a previous process left behind.
func (s *RedisStore) Reset(ctx context.Context) error {
	rooms, err := s.rdb.SMembers(ctx, s.keyRooms()).Result()
	if err != nil {
		return errors.Wrap(err, "presence: list rooms")
	}
	keys := []string{s.keyRooms()}
	for _, r := range rooms {
		keys = append(keys, s.keyMembers(domain.RoomID(r)), s.keyStream(domain.RoomID(r)))
	}
	return errors.Wrap(s.rdb.Del(ctx, keys...).Err(), "presence: reset")
}

func (s *RedisStore) AddMember(ctx context.Context, room domain.RoomID, u domain.User) error {
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, s.keyRooms(), string(room))
	pipe.HSet(ctx, s.keyMembers(room), string(u.ID), u.Username)
	_, err := pipe.Exec(ctx)
	return errors.Wrapf(err, "presence: add member %s to %s", u.ID, room)
}

func (s *RedisStore) RemoveMember(ctx context.Context, room domain.RoomID, id domain.UserID) error {
	if err := s.rdb.HDel(ctx, s.keyMembers(room), string(id)).Err(); err != nil {
		return errors.Wrapf(err, "presence: remove member %s from %s", id, room)
	}
	return s.forgetIfIdle(ctx, room)
}

func (s *RedisStore) SetStream(ctx context.Context, room domain.RoomID, info core.StreamInfo) error {
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, s.keyRooms(), string(room))
	pipe.HSet(ctx, s.keyStream(room), map[string]any{
		"hostConnectionId": string(info.HostConn),
		"userId":           string(info.Host.ID),
		"userName":         info.Host.Username,
		"streamTitle":      info.Title,
		"startedAt":        info.StartedAt.UTC().Format(time.RFC3339),
		"viewers":          len(info.Viewers),
	})
	_, err := pipe.Exec(ctx)
	return errors.Wrapf(err, "presence: set stream of %s", room)
}

func (s *RedisStore) ClearStream(ctx context.Context, room domain.RoomID) error {
	if err := s.rdb.Del(ctx, s.keyStream(room)).Err(); err != nil {
		return errors.Wrapf(err, "presence: clear stream of %s", room)
	}
	return s.forgetIfIdle(ctx, room)
}

// forgetIfIdle removes room from the active set once it has neither
// members nor a stream. Writes come from a single worker, so the
// read-then-write is not racing other relay writes.
func (s *RedisStore) forgetIfIdle(ctx context.Context, room domain.RoomID) error {
	n, err := s.rdb.Exists(ctx, s.keyMembers(room), s.keyStream(room)).Result()
	if err != nil {
		return errors.Wrapf(err, "presence: inspect %s", room)
	}
	if n > 0 {
		return nil
	}
	return errors.Wrapf(s.rdb.SRem(ctx, s.keyRooms(), string(room)).Err(), "presence: forget %s", room)
}
