package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streamvault/mediagate/pkg/domain"
)

// In-memory collaborator fakes shared by the tests in this package.

type fakeTierAuthority struct {
	mu    sync.Mutex
	users map[string]domain.TierInfo
	err   error
}

func newFakeTierAuthority() *fakeTierAuthority {
	return &fakeTierAuthority{users: make(map[string]domain.TierInfo)}
}

func (f *fakeTierAuthority) set(userID string, tier domain.Tier, status domain.SubscriptionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[userID] = domain.TierInfo{Tier: tier, Status: status}
}

func (f *fakeTierAuthority) GetUserTier(_ context.Context, userID string) (domain.TierInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.TierInfo{}, f.err
	}
	if info, ok := f.users[userID]; ok {
		return info, nil
	}
	return domain.TierInfo{Tier: domain.TierNone, Status: domain.StatusNone}, nil
}

type fakeLocator struct {
	objects map[string]bool
	err     error
	signed  int
}

func newFakeLocator(assetIDs ...string) *fakeLocator {
	f := &fakeLocator{objects: make(map[string]bool)}
	for _, id := range assetIDs {
		f.objects[id] = true
	}
	return f
}

func (f *fakeLocator) Exists(_ context.Context, assetID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.objects[assetID], nil
}

func (f *fakeLocator) SignReference(_ context.Context, assetID string, ttl time.Duration) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	f.signed++
	return fmt.Sprintf("https://objects.test/%s?sig=%d", assetID, f.signed), time.Now().Add(ttl), nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.PlaybackSession
	err      error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*domain.PlaybackSession)}
}

func (s *memSessionStore) Create(_ context.Context, session *domain.PlaybackSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *memSessionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.PlaybackSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *memSessionStore) CompareAndSwapRefresh(_ context.Context, id uuid.UUID, expectedCount int, refreshedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	session, ok := s.sessions[id]
	if !ok || session.Expired || session.RefreshCount != expectedCount {
		return false, nil
	}
	session.RefreshCount++
	session.LastRefreshedAt = refreshedAt
	return true, nil
}

func (s *memSessionStore) RevokeByUser(_ context.Context, userID, assetID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var count int64
	for _, session := range s.sessions {
		if session.Expired || session.UserID != userID {
			continue
		}
		if assetID != "" && session.AssetID != assetID {
			continue
		}
		session.Expired = true
		count++
	}
	return count, nil
}

func (s *memSessionStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var count int64
	for _, session := range s.sessions {
		if !session.Expired && session.ExpiresAt.Before(now) {
			session.Expired = true
			count++
		}
	}
	return count, nil
}

// expire flips the session flag directly, simulating a revoked or swept row.
func (s *memSessionStore) expire(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		session.Expired = true
	}
}

type memLogStore struct {
	mu      sync.Mutex
	entries []*domain.AccessLogEntry
	err     error
}

func (s *memLogStore) Append(_ context.Context, entry *domain.AccessLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

func (s *memLogStore) ListByAsset(_ context.Context, assetID string, since time.Time, limit int) ([]*domain.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.AccessLogEntry
	for _, e := range s.entries {
		if e.AssetID != assetID || e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memLogStore) all() []*domain.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.AccessLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

var errBackendDown = errors.New("backend down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
