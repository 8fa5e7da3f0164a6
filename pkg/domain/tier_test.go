package domain

import (
	"errors"
	"net/http"
	"testing"
)

func TestTierRankOrdering(t *testing.T) {
	ordered := []Tier{TierNone, TierBasic, TierPremium, TierPro}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("%s should rank above %s", ordered[i], ordered[i-1])
		}
	}
}

func TestTierAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		tier     Tier
		required Tier
		want     bool
	}{
		{"equal tiers", TierPremium, TierPremium, true},
		{"higher tier", TierPro, TierBasic, true},
		{"lower tier", TierBasic, TierPro, false},
		{"none vs basic", TierNone, TierBasic, false},
		{"unknown tier never qualifies", Tier("gold"), TierBasic, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tier.AtLeast(tt.required); got != tt.want {
				t.Errorf("AtLeast(%s, %s) = %v, want %v", tt.tier, tt.required, got, tt.want)
			}
		})
	}
}

func TestParseTier_UnknownMapsToNone(t *testing.T) {
	if got := ParseTier("platinum"); got != TierNone {
		t.Errorf("ParseTier(platinum) = %s, want %s", got, TierNone)
	}
	if got := ParseTier("pro"); got != TierPro {
		t.Errorf("ParseTier(pro) = %s, want %s", got, TierPro)
	}
}

func TestStatusEntitled(t *testing.T) {
	entitled := []SubscriptionStatus{StatusActive, StatusTrialing}
	for _, s := range entitled {
		if !s.Entitled() {
			t.Errorf("%s should be entitled", s)
		}
	}
	denied := []SubscriptionStatus{StatusPastDue, StatusCanceled, StatusNone}
	for _, s := range denied {
		if s.Entitled() {
			t.Errorf("%s should not be entitled", s)
		}
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err        error
		wantCode   string
		wantStatus int
	}{
		{ErrSubscriptionInactive, CodeSubscriptionInactive, http.StatusPaymentRequired},
		{ErrInsufficientTier, CodeInsufficientTier, http.StatusForbidden},
		{ErrAssetNotFound, CodeAssetNotFound, http.StatusNotFound},
		{ErrSessionInvalid, CodeSessionInvalid, http.StatusUnauthorized},
		{ErrRefreshLimitExceeded, CodeRefreshLimitExceeded, http.StatusTooManyRequests},
		{ErrInvalidRefreshToken, CodeInvalidRefreshToken, http.StatusUnauthorized},
		{ErrRefreshTokenExpired, CodeRefreshTokenExpired, http.StatusUnauthorized},
		{errors.New("connection refused"), CodeBackendUnavailable, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			code, status := CodeFor(tt.err)
			if code != tt.wantCode || status != tt.wantStatus {
				t.Errorf("CodeFor(%v) = (%s, %d), want (%s, %d)", tt.err, code, status, tt.wantCode, tt.wantStatus)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(ErrInsufficientTier) {
		t.Error("denials must not be retryable")
	}
	if !Retryable(ErrBackendUnavailable) {
		t.Error("backend failures must be retryable")
	}
}
