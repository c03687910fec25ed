package casambi

import (
	"errors"
	"testing"
)

func TestAPIErrorIs(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{401, ErrLoginRequired},
		{403, ErrForbidden},
		{404, ErrNotFound},
		{410, ErrInvalidSession},
		{429, ErrRateLimited},
		{500, ErrServer},
		{503, ErrServer},
	}
	for _, tt := range tests {
		err := newAPIError(tt.status, "/test")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d should match %v", tt.status, tt.want)
		}
	}

	if errors.Is(newAPIError(404, "/test"), ErrLoginRequired) {
		t.Error("404 should not match ErrLoginRequired")
	}
}

func TestAPIErrorReason(t *testing.T) {
	err := newAPIError(410, "/networks/net1/state")
	if err.Reason != "invalid session" {
		t.Errorf("reason = %q", err.Reason)
	}

	// Unknown 5xx codes fall back to the generic server reason
	err = newAPIError(502, "/test")
	if err.Reason != "server error" {
		t.Errorf("reason = %q, want server error", err.Reason)
	}
}

func TestSessionExpired(t *testing.T) {
	if !sessionExpired(newAPIError(401, "/t")) {
		t.Error("401 should expire the session")
	}
	if !sessionExpired(newAPIError(410, "/t")) {
		t.Error("410 should expire the session")
	}
	if sessionExpired(newAPIError(429, "/t")) {
		t.Error("429 should not expire the session")
	}
	if sessionExpired(errors.New("plain")) {
		t.Error("plain error should not expire the session")
	}
}
