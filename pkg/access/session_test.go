package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/streamvault/mediagate/pkg/domain"
)

func testManager(store *memSessionStore, tiers *fakeTierAuthority, cfg SessionConfig) *SessionManager {
	if cfg.Secret == nil {
		cfg.Secret = []byte("test-refresh-secret-32-bytes-long")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "mediagate-test"
	}
	return NewSessionManager(cfg, store, NewAuthorizer(tiers, 0))
}

func TestSessionManager_CreateSetsInitialState(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	manager := testManager(store, tiers, SessionConfig{})

	session, token, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierPremium, ClientInfo{IP: "10.0.0.1", UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.RefreshCount != 1 {
		t.Errorf("RefreshCount = %d, want 1", session.RefreshCount)
	}
	if session.Expired {
		t.Error("new session must not be expired")
	}
	if !session.ExpiresAt.After(session.StartedAt) {
		t.Error("ExpiresAt must be after StartedAt")
	}
	if got := session.ExpiresAt.Sub(session.StartedAt); got != DefaultSessionCeiling {
		t.Errorf("session ceiling = %v, want %v", got, DefaultSessionCeiling)
	}
	if session.ClientIP != "10.0.0.1" || session.UserAgent != "test-agent" {
		t.Error("client diagnostics not captured")
	}
	if token == "" {
		t.Fatal("expected a refresh token")
	}
	if err := manager.verifyRefreshToken(token, session.ID, "user-1"); err != nil {
		t.Errorf("fresh token should verify, got %v", err)
	}
}

func TestSessionManager_EachRequestGetsOwnSession(t *testing.T) {
	store := newMemSessionStore()
	manager := testManager(store, newFakeTierAuthority(), SessionConfig{})

	a, _, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierBasic, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierBasic, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("concurrent sessions for the same user+asset must not be coalesced")
	}
}

func TestSessionManager_RefreshIncrementsCount(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	tiers.set("user-1", domain.TierPro, domain.StatusActive)
	manager := testManager(store, tiers, SessionConfig{})

	session, token, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierPro, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}

	// After N successful refreshes the count is 1 + N.
	const refreshes = 5
	for i := 0; i < refreshes; i++ {
		refreshed, _, err := manager.Refresh(context.Background(), session.ID, "user-1", token)
		if err != nil {
			t.Fatalf("refresh %d failed: %v", i+1, err)
		}
		if refreshed.RefreshCount != 2+i {
			t.Fatalf("refresh %d: RefreshCount = %d, want %d", i+1, refreshed.RefreshCount, 2+i)
		}
		if refreshed.LastRefreshedAt.Before(refreshed.StartedAt) {
			t.Error("LastRefreshedAt must not precede StartedAt")
		}
	}
}

func TestSessionManager_RefreshLimit(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	tiers.set("user-1", domain.TierBasic, domain.StatusActive)
	manager := testManager(store, tiers, SessionConfig{MaxRefresh: 3})

	session, token, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierBasic, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}

	// Count starts at 1, so two refreshes reach the limit of 3.
	for i := 0; i < 2; i++ {
		if _, _, err := manager.Refresh(context.Background(), session.ID, "user-1", token); err != nil {
			t.Fatalf("refresh %d failed: %v", i+1, err)
		}
	}
	_, _, err = manager.Refresh(context.Background(), session.ID, "user-1", token)
	if !errors.Is(err, domain.ErrRefreshLimitExceeded) {
		t.Fatalf("refresh past limit: error = %v, want %v", err, domain.ErrRefreshLimitExceeded)
	}
}

func TestSessionManager_RefreshTokenBinding(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	tiers.set("user-1", domain.TierPro, domain.StatusActive)
	tiers.set("user-2", domain.TierPro, domain.StatusActive)
	manager := testManager(store, tiers, SessionConfig{})

	session, token, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierPro, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}
	other, otherToken, err := manager.Create(context.Background(), "user-2", "asset-1", domain.TierPro, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		sessionID uuid.UUID
		userID    string
		token     string
		wantErr   error
	}{
		{"matching binding accepted", session.ID, "user-1", token, nil},
		{"wrong session id", other.ID, "user-1", token, domain.ErrInvalidRefreshToken},
		{"wrong user id", session.ID, "user-2", token, domain.ErrInvalidRefreshToken},
		{"token from another session", session.ID, "user-1", otherToken, domain.ErrInvalidRefreshToken},
		{"garbage token", session.ID, "user-1", "not-a-token", domain.ErrInvalidRefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := manager.Refresh(context.Background(), tt.sessionID, tt.userID, tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Refresh() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionManager_RefreshTokenExpired(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	tiers.set("user-1", domain.TierPro, domain.StatusActive)
	// Token lifetime far shorter than the session ceiling.
	manager := testManager(store, tiers, SessionConfig{RefreshTokenTTL: time.Nanosecond})

	session, token, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierPro, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	_, _, err = manager.Refresh(context.Background(), session.ID, "user-1", token)
	if !errors.Is(err, domain.ErrRefreshTokenExpired) {
		t.Fatalf("Refresh() error = %v, want %v", err, domain.ErrRefreshTokenExpired)
	}
}

func TestSessionManager_ExpiredFlagIsSticky(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	tiers.set("user-1", domain.TierPro, domain.StatusActive)
	manager := testManager(store, tiers, SessionConfig{})

	session, token, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierPro, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}
	store.expire(session.ID)

	// A still-valid token cannot resurrect an expired session.
	_, _, err = manager.Refresh(context.Background(), session.ID, "user-1", token)
	if !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("Refresh() error = %v, want %v", err, domain.ErrSessionInvalid)
	}
}

func TestSessionManager_RefreshAfterCeiling(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	tiers.set("user-1", domain.TierPro, domain.StatusActive)
	manager := testManager(store, tiers, SessionConfig{SessionCeiling: time.Nanosecond, RefreshTokenTTL: time.Hour})

	session, token, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierPro, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	_, _, err = manager.Refresh(context.Background(), session.ID, "user-1", token)
	if !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("Refresh() error = %v, want %v", err, domain.ErrSessionInvalid)
	}
}

func TestSessionManager_MissingSession(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	manager := testManager(store, tiers, SessionConfig{})

	id := uuid.New()
	token, err := manager.issueRefreshToken(id, "user-1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = manager.Refresh(context.Background(), id, "user-1", token)
	if !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("Refresh() error = %v, want %v", err, domain.ErrSessionInvalid)
	}
}

func TestSessionManager_TierDowngradeDeniesRefresh(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	tiers.set("user-1", domain.TierPro, domain.StatusActive)
	manager := testManager(store, tiers, SessionConfig{})

	session, token, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierPro, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}

	tiers.set("user-1", domain.TierBasic, domain.StatusActive)

	_, _, err = manager.Refresh(context.Background(), session.ID, "user-1", token)
	if !errors.Is(err, domain.ErrInsufficientTier) {
		t.Fatalf("Refresh() after downgrade: error = %v, want %v", err, domain.ErrInsufficientTier)
	}
}

func TestSessionManager_RefreshRetriesOnCASConflict(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	tiers.set("user-1", domain.TierPro, domain.StatusActive)
	manager := testManager(store, tiers, SessionConfig{})

	session, token, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierPro, ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a concurrent refresh landing between load and CAS by bumping
	// the stored counter underneath the manager's first attempt.
	store.mu.Lock()
	store.sessions[session.ID].RefreshCount = 2
	store.mu.Unlock()

	refreshed, _, err := manager.Refresh(context.Background(), session.ID, "user-1", token)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.RefreshCount != 3 {
		t.Errorf("RefreshCount = %d, want 3 (no lost update)", refreshed.RefreshCount)
	}
}

func TestSessionManager_RevokeIdempotent(t *testing.T) {
	store := newMemSessionStore()
	tiers := newFakeTierAuthority()
	manager := testManager(store, tiers, SessionConfig{})

	for i := 0; i < 3; i++ {
		if _, _, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierBasic, ClientInfo{}); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := manager.Create(context.Background(), "user-1", "asset-2", domain.TierBasic, ClientInfo{}); err != nil {
		t.Fatal(err)
	}

	count, err := manager.Revoke(context.Background(), "user-1", "asset-1")
	if err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if count != 3 {
		t.Errorf("first revoke count = %d, want 3", count)
	}

	count, err = manager.Revoke(context.Background(), "user-1", "asset-1")
	if err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if count != 0 {
		t.Errorf("second revoke count = %d, want 0", count)
	}

	// The asset-2 session is untouched by the narrowed revoke.
	count, err = manager.Revoke(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if count != 1 {
		t.Errorf("revoke-all count = %d, want 1", count)
	}
}

func TestSessionManager_PurgeExpired(t *testing.T) {
	store := newMemSessionStore()
	manager := testManager(store, newFakeTierAuthority(), SessionConfig{})

	now := time.Now()
	for i := 0; i < 3; i++ {
		id := uuid.New()
		store.sessions[id] = &domain.PlaybackSession{
			ID:        id,
			UserID:    "user-1",
			AssetID:   "asset-1",
			StartedAt: now.Add(-48 * time.Hour),
			ExpiresAt: now.Add(-time.Hour),
		}
	}
	var future []uuid.UUID
	for i := 0; i < 2; i++ {
		id := uuid.New()
		future = append(future, id)
		store.sessions[id] = &domain.PlaybackSession{
			ID:        id,
			UserID:    "user-2",
			AssetID:   "asset-1",
			StartedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}
	}

	count, err := manager.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if count != 3 {
		t.Errorf("purged = %d, want 3", count)
	}
	for _, id := range future {
		if store.sessions[id].Expired {
			t.Error("purge must not touch sessions inside their ceiling")
		}
	}

	// Idempotent: a second sweep finds nothing.
	count, err = manager.PurgeExpired(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("second purge = %d, want 0", count)
	}
}

func TestSessionManager_StoreFailureIsTransient(t *testing.T) {
	store := newMemSessionStore()
	store.err = errBackendDown
	manager := testManager(store, newFakeTierAuthority(), SessionConfig{})

	_, _, err := manager.Create(context.Background(), "user-1", "asset-1", domain.TierBasic, ClientInfo{})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("Create() error = %v, want transient backend error", err)
	}
}
