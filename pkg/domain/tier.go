package domain

// Tier is a subscription rank controlling which assets a user may play.
type Tier string

const (
	TierNone    Tier = "none"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierPro     Tier = "pro"
)

// tierRanks defines the total order over the tier set.
var tierRanks = map[Tier]int{
	TierNone:    0,
	TierBasic:   1,
	TierPremium: 2,
	TierPro:     3,
}

// Rank returns the tier's position in the total order. Unknown tiers rank
// below every known tier.
func (t Tier) Rank() int {
	if r, ok := tierRanks[t]; ok {
		return r
	}
	return -1
}

// Known reports whether the tier is one of the defined ranks.
func (t Tier) Known() bool {
	_, ok := tierRanks[t]
	return ok
}

// AtLeast reports whether the tier ranks at or above the required tier.
func (t Tier) AtLeast(required Tier) bool {
	return t.Rank() >= required.Rank()
}

// ParseTier normalizes a tier string. Unknown values map to TierNone.
func ParseTier(s string) Tier {
	t := Tier(s)
	if t.Known() {
		return t
	}
	return TierNone
}

// SubscriptionStatus is the billing state reported by the tier authority.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusNone     SubscriptionStatus = "none"
)

// Entitled reports whether the status permits access at all. Only active and
// trialing subscriptions are entitled; past_due and canceled are not.
func (s SubscriptionStatus) Entitled() bool {
	return s == StatusActive || s == StatusTrialing
}

// ParseStatus normalizes a status string. Unknown values map to StatusNone.
func ParseStatus(s string) SubscriptionStatus {
	switch SubscriptionStatus(s) {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled:
		return SubscriptionStatus(s)
	}
	return StatusNone
}

// TierInfo is the tier authority's answer for one user.
type TierInfo struct {
	Tier   Tier               `json:"tier"`
	Status SubscriptionStatus `json:"status"`
}
