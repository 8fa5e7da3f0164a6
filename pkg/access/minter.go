package access

import (
	"context"
	"fmt"
	"time"

	"github.com/streamvault/mediagate/pkg/domain"
)

// DefaultGrantTTL is the signed reference lifetime. Deliberately short and
// independent of the session ceiling: it bounds the blast radius of a leaked
// URL no matter how long the session stays valid.
const DefaultGrantTTL = 15 * time.Minute

// Minter produces signed, time-boxed references to stored objects. Stateless
// and side-effect-free beyond the external signing call.
type Minter struct {
	locator ObjectLocator
	ttl     time.Duration
	timeout time.Duration
}

// NewMinter creates a minter over the given object locator.
func NewMinter(locator ObjectLocator, ttl, timeout time.Duration) *Minter {
	if ttl == 0 {
		ttl = DefaultGrantTTL
	}
	if timeout == 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &Minter{locator: locator, ttl: ttl, timeout: timeout}
}

// GrantTTL returns the fixed grant lifetime.
func (m *Minter) GrantTTL() time.Duration {
	return m.ttl
}

// Mint confirms the object exists and returns a signed reference to it.
// Never signs a reference to a missing object: a grant that would 404 pollutes
// the analytics with false successes.
func (m *Minter) Mint(ctx context.Context, assetID string) (string, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	exists, err := m.locator.Exists(ctx, assetID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: object lookup: %v", domain.ErrBackendUnavailable, err)
	}
	if !exists {
		return "", time.Time{}, domain.ErrAssetNotFound
	}

	url, expiresAt, err := m.locator.SignReference(ctx, assetID, m.ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: sign reference: %v", domain.ErrBackendUnavailable, err)
	}
	return url, expiresAt, nil
}
