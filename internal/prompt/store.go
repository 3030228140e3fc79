package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"promptdoumi/internal/cache"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// StateStore persists builder states per client and mode.
type StateStore interface {
	Load(ctx context.Context, clientID, mode string) (State, error)
	Save(ctx context.Context, clientID string, s State) error
}

// NewStateStore returns a Redis-backed store, or an in-memory one when rdb is nil.
func NewStateStore(rdb *redis.Client) StateStore {
	if rdb == nil {
		return NewMemoryStateStore()
	}
	return &RedisStateStore{rdb: rdb, ttl: cache.BuilderStateTTL}
}

// RedisStateStore keeps states as JSON with a sliding TTL.
type RedisStateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// Load returns the stored state, or a fresh one if none exists.
func (s *RedisStateStore) Load(ctx context.Context, clientID, mode string) (State, error) {
	raw, err := s.rdb.Get(ctx, cache.BuilderStateKey(clientID, mode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(mode), nil
	}
	if err != nil {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return NewState(mode), nil
	}
	if st.Selections == nil {
		st.Selections = NewSelections()
	}
	st.Mode = mode
	return st, nil
}

// Save stores st under its mode.
func (s *RedisStateStore) Save(ctx context.Context, clientID string, st State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cache.BuilderStateKey(clientID, st.Mode), b, s.ttl).Err()
}

// MemoryStateLimit caps how many builder forms the in-memory store keeps.
const MemoryStateLimit = 10_000

// MemoryStateStore keeps states in process memory. Entries expire like the
// Redis keys do, and the least recently used form goes first once the store
// is full.
type MemoryStateStore struct {
	states *expirable.LRU[string, State]
}

// NewMemoryStateStore returns an empty in-memory store bounded by
// MemoryStateLimit and cache.BuilderStateTTL.
func NewMemoryStateStore() *MemoryStateStore {
	return newMemoryStateStore(MemoryStateLimit, cache.BuilderStateTTL)
}

func newMemoryStateStore(size int, ttl time.Duration) *MemoryStateStore {
	return &MemoryStateStore{states: expirable.NewLRU[string, State](size, nil, ttl)}
}

// Load returns the stored state, or a fresh one if none exists.
func (s *MemoryStateStore) Load(_ context.Context, clientID, mode string) (State, error) {
	st, ok := s.states.Get(cache.BuilderStateKey(clientID, mode))
	if !ok {
		return NewState(mode), nil
	}
	st.Selections = st.Selections.Clone()
	return st, nil
}

// Save stores a copy of st under its mode and restarts its expiry.
func (s *MemoryStateStore) Save(_ context.Context, clientID string, st State) error {
	st.Selections = st.Selections.Clone()
	s.states.Add(cache.BuilderStateKey(clientID, st.Mode), st)
	return nil
}

// Len is the number of forms currently held.
func (s *MemoryStateStore) Len() int {
	return s.states.Len()
}
