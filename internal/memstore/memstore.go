// Package memstore is an in-memory implementation of the store port with
// real key expiry and pub/sub fan-out. It backs the unit tests; Redis
// backs production.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/hyuricane/redchat/internal/port"
)

type Store struct {
	mu     sync.Mutex
	strs   map[string]string
	lists  map[string][]string
	ttlGen map[string]uint64
	subs   map[string]map[uint64]port.MessageHandler
	nextID uint64
}

var _ port.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		strs:   make(map[string]string),
		lists:  make(map[string][]string),
		ttlGen: make(map[string]uint64),
		subs:   make(map[string]map[uint64]port.MessageHandler),
	}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.strs[key]
	return val, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strs[key] = value
	return nil
}

func (s *Store) SetNX(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strs[key]; ok {
		return false, nil
	}
	s.strs[key] = value
	return true, nil
}

func (s *Store) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (s *Store) RPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], values...)
	return nil
}

func (s *Store) LRem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	kept := list[:0]
	for _, v := range list {
		if v != value {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		// an empty list ceases to exist, matching Redis
		delete(s.lists, key)
		return nil
	}
	s.lists[key] = kept
	return nil
}

func (s *Store) PushTrim(_ context.Context, key, value string, limit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]string{value}, s.lists[key]...)
	if int64(len(list)) > limit {
		list = list[:limit]
	}
	s.lists[key] = list
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strs[key]; ok {
		return true, nil
	}
	_, ok := s.lists[key]
	return ok, nil
}

func (s *Store) Persist(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		// bumping the generation invalidates any pending expiry callback
		s.ttlGen[key]++
	}
	return nil
}

func (s *Store) Expire(_ context.Context, ttl time.Duration, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.ttlGen[key]++
		if ttl <= 0 {
			s.deleteKeyLocked(key)
			continue
		}
		gen := s.ttlGen[key]
		k := key
		time.AfterFunc(ttl, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.ttlGen[k] != gen {
				return
			}
			s.deleteKeyLocked(k)
		})
	}
	return nil
}

func (s *Store) deleteKeyLocked(key string) {
	delete(s.strs, key)
	delete(s.lists, key)
}

// Publish delivers the payload to every handler subscribed to the channel,
// synchronously in the caller's goroutine. Handlers run outside the store
// lock and may call back into the store.
func (s *Store) Publish(_ context.Context, channel, payload string) error {
	s.mu.Lock()
	handlers := make([]port.MessageHandler, 0, len(s.subs[channel]))
	for _, h := range s.subs[channel] {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h(payload)
	}
	return nil
}

func (s *Store) Subscribe(_ context.Context, channel string, handler port.MessageHandler) (port.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[channel] == nil {
		s.subs[channel] = make(map[uint64]port.MessageHandler)
	}
	s.nextID++
	id := s.nextID
	s.subs[channel][id] = handler
	return &subscription{store: s, channel: channel, id: id}, nil
}

// Subscribers reports how many handlers are registered on a channel.
func (s *Store) Subscribers(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[channel])
}

func (s *Store) Close() error {
	return nil
}

type subscription struct {
	store   *Store
	channel string
	id      uint64
}

func (s *subscription) Unsubscribe(_ context.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	handlers := s.store.subs[s.channel]
	delete(handlers, s.id)
	if len(handlers) == 0 {
		delete(s.store.subs, s.channel)
	}
	return nil
}
