package helpers

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewJWTManager("test-secret").WithClock(func() time.Time { return issued })

	tok, exp, err := m.GenerateAccessToken(1, "member")
	if err != nil {
		t.Fatal(err)
	}
	if want := issued.Add(7 * 24 * time.Hour); !exp.Equal(want) {
		t.Fatalf("exp = %v, want %v", exp, want)
	}

	claims, err := m.ParseAccessToken(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 1 || claims.Role != "member" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestAccessTokenDeterministicForSameInstant(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewJWTManager("k").WithClock(func() time.Time { return at })
	a, _, _ := m.GenerateAccessToken(5, "admin")
	b, _, _ := m.GenerateAccessToken(5, "admin")
	if a != b {
		t.Fatal("same secret, payload and instant must produce the same token")
	}
}

func TestParseAccessTokenFailures(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewJWTManager("test-secret").WithClock(func() time.Time { return issued })
	tok, _, _ := m.GenerateAccessToken(1, "member")

	other := NewJWTManager("other-secret").WithClock(func() time.Time { return issued })
	forged, _, _ := other.GenerateAccessToken(1, "admin")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1, Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour))}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	later := m.WithClock(func() time.Time { return issued.Add(7*24*time.Hour + time.Minute) })

	tests := []struct {
		name    string
		mgr     *JWTManager
		token   string
		wantErr error
	}{
		{"bad signature", m, forged, ErrInvalidToken},
		{"garbage", m, "not.a.token", ErrInvalidToken},
		{"tampered", m, tok[:len(tok)-2] + "xx", ErrInvalidToken},
		{"alg none", m, unsigned, ErrInvalidToken},
		{"expired", later, tok, ErrExpiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.mgr.ParseAccessToken(tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == ErrInvalidToken && errors.Is(err, ErrExpiredToken) {
				t.Fatal("invalid and expired must stay distinct")
			}
		})
	}
}

func TestAccessTokenCarriesStandardClaims(t *testing.T) {
	m := NewJWTManager("k")
	tok, _, _ := m.GenerateAccessToken(9, "member")
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("not a compact JWS: %q", tok)
	}
	claims, err := m.ParseAccessToken(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("iat and exp must be set")
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt.Time); d != AccessTokenTTL {
		t.Fatalf("ttl = %v", d)
	}
}
