package access

import (
	"context"
	"fmt"
	"time"

	"github.com/streamvault/mediagate/pkg/domain"
)

// DefaultCollaboratorTimeout bounds calls to the tier authority and object
// locator so a stuck backend surfaces as a transient failure, not a hang.
const DefaultCollaboratorTimeout = 5 * time.Second

// Authorizer decides whether a (user, required-tier) pair is currently
// permitted. It is a pure decision: all logging happens in the caller so
// allow and deny paths are recorded uniformly, exactly once.
type Authorizer struct {
	tiers   TierAuthority
	timeout time.Duration
}

// NewAuthorizer creates an authorizer over the given tier authority.
func NewAuthorizer(tiers TierAuthority, timeout time.Duration) *Authorizer {
	if timeout == 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &Authorizer{tiers: tiers, timeout: timeout}
}

// Authorize returns the user's current tier info on allow. On denial the
// returned info still carries the looked-up tier when the lookup succeeded,
// so the caller can attribute the denial. Lookup failures and timeouts are
// transient, never denials: authorization fails closed only on a definite
// answer from the tier authority.
func (a *Authorizer) Authorize(ctx context.Context, userID string, required domain.Tier) (domain.TierInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	info, err := a.tiers.GetUserTier(ctx, userID)
	if err != nil {
		return domain.TierInfo{}, fmt.Errorf("%w: tier lookup: %v", domain.ErrBackendUnavailable, err)
	}

	if !info.Status.Entitled() {
		return info, domain.ErrSubscriptionInactive
	}

	// A user with no tier qualifies only when the required tier is the
	// lowest rank.
	if info.Tier == domain.TierNone {
		if required == domain.TierBasic {
			return info, nil
		}
		return info, domain.ErrInsufficientTier
	}

	if !info.Tier.AtLeast(required) {
		return info, domain.ErrInsufficientTier
	}
	return info, nil
}
