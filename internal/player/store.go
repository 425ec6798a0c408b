package player

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const storeShards = 16

// Store is a sharded concurrent map of connected player state. The dispatch
// goroutine, the latency sampler, and the admin API all read it.
type Store struct {
	shards      [storeShards]storeShard
	defaultPing int

	connects    atomic.Uint64
	disconnects atomic.Uint64
}

type storeShard struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*State
}

// NewStore creates an empty player store. defaultPing seeds the ping of
// players that have no latency sample yet.
func NewStore(defaultPing int) *Store {
	s := &Store{defaultPing: defaultPing}
	for i := range s.shards {
		s.shards[i].players = make(map[uuid.UUID]*State)
	}
	return s
}

func (s *Store) shard(id uuid.UUID) *storeShard {
	return &s.shards[id[0]%storeShards]
}

// Connect registers a player, returning existing state on reconnect races.
func (s *Store) Connect(id uuid.UUID, name string) *State {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if st, ok := sh.players[id]; ok {
		return st
	}
	st := NewState(id, name, s.defaultPing)
	sh.players[id] = st
	s.connects.Add(1)
	return st
}

// Disconnect removes a player and returns their final state, or nil if the
// player was not tracked.
func (s *Store) Disconnect(id uuid.UUID) *State {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.players[id]
	if !ok {
		return nil
	}
	delete(sh.players, id)
	s.disconnects.Add(1)
	return st
}

// Get returns the state for a connected player.
func (s *Store) Get(id uuid.UUID) (*State, bool) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	st, ok := sh.players[id]
	return st, ok
}

// GetOrConnect returns existing state or registers the player. Events can
// arrive before the connect event when the agent reorders batches.
func (s *Store) GetOrConnect(id uuid.UUID, name string) *State {
	if st, ok := s.Get(id); ok {
		return st
	}
	return s.Connect(id, name)
}

// ForEach calls fn for every tracked player. fn must not call back into
// the store.
func (s *Store) ForEach(fn func(*State)) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		states := make([]*State, 0, len(sh.players))
		for _, st := range sh.players {
			states = append(states, st)
		}
		sh.mu.RUnlock()
		for _, st := range states {
			fn(st)
		}
	}
}

// Count returns the number of tracked players.
func (s *Store) Count() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.players)
		sh.mu.RUnlock()
	}
	return n
}

// Stats returns lifetime connect and disconnect counts.
func (s *Store) Stats() (connects, disconnects uint64) {
	return s.connects.Load(), s.disconnects.Load()
}
