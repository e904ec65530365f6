package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/selpix/selpix/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	u := &model.User{ID: "u-1", Email: "a@example.com", IsAdmin: true}

	raw, exp, err := tokens.Issue(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if d := time.Until(exp); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expiry in %v, want about an hour", d)
	}

	ac, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := AuthContext{UserID: "u-1", Email: "a@example.com", IsAdmin: true}
	if ac != want {
		t.Errorf("parsed = %+v, want %+v", ac, want)
	}
}

func TestParseRejects(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	u := &model.User{ID: "u-1", Email: "a@example.com"}
	good, _, _ := tokens.Issue(u)

	expired := NewTokens("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, _ := expired.Issue(u)

	other, _, _ := NewTokens("other", time.Hour).Issue(u)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u-1", "iss": issuer, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name string
		raw  string
	}{
		{"expired", old},
		{"wrong secret", other},
		{"unsigned", none},
		{"garbage", "not.a.token"},
		{"truncated", good[:len(good)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Parse(tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
