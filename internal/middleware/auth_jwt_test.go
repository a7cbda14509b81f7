package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := SessionToken("secret", 7, "ru", time.Hour)
	if err != nil {
		t.Fatalf("session token: %v", err)
	}

	claims, err := VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Sub != "7" {
		t.Errorf("sub = %q", claims.Sub)
	}
	if claims.Locale != "ru" {
		t.Errorf("locale = %q", claims.Locale)
	}
	if claims.Issuer != TokenIssuer {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestVerifyJWTRejectsTampering(t *testing.T) {
	token, err := SessionToken("secret", 7, "", time.Hour)
	if err != nil {
		t.Fatalf("session token: %v", err)
	}

	if _, err := VerifyJWT("other-secret", token); err == nil {
		t.Errorf("expected error for wrong secret")
	}
	if _, err := VerifyJWT("secret", token+"x"); err == nil {
		t.Errorf("expected error for altered signature")
	}
	if _, err := VerifyJWT("secret", "not-a-token"); err == nil {
		t.Errorf("expected error for malformed token")
	}
}

func TestVerifyJWTRejectsExpired(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{
		Sub: "7", Exp: time.Now().Add(-time.Minute).Unix(), Issuer: TokenIssuer,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyJWT("secret", token); err == nil {
		t.Errorf("expected error for expired token")
	}
}

func TestAuthJWTMiddleware(t *testing.T) {
	var gotUserID int64
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token, err := SessionToken("secret", 42, "", time.Hour)
	if err != nil {
		t.Fatalf("session token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotUserID != 42 {
		t.Fatalf("user id = %d", gotUserID)
	}
}

func TestAuthJWTRejections(t *testing.T) {
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("handler reached without valid token")
	}))

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{name: "missing header", setup: func(r *http.Request) {}},
		{name: "wrong scheme", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Basic abc")
		}},
		{name: "garbage token", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer garbage")
		}},
		{name: "non-numeric subject", setup: func(r *http.Request) {
			token, _ := SignJWT("secret", TokenClaims{Sub: "abc", Exp: time.Now().Add(time.Hour).Unix()})
			r.Header.Set("Authorization", "Bearer "+token)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}
