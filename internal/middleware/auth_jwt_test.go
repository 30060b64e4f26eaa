package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignAndVerifyJWT(t *testing.T) {
	claims := TokenClaims{
		Sub:      "user-123",
		Plan:     "premium",
		Exp:      time.Now().Add(time.Hour).Unix(),
		Issuer:   "tester",
		Audience: "clients",
	}
	token, err := SignJWT("test-secret", claims)
	if err != nil {
		t.Fatalf("SignJWT() unexpected error: %v", err)
	}
	parsed, err := VerifyJWT("test-secret", token)
	if err != nil {
		t.Fatalf("VerifyJWT() unexpected error: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Plan != claims.Plan {
		t.Fatalf("VerifyJWT() returned %+v, want %+v", parsed, claims)
	}
}

func TestVerifyJWTRejects(t *testing.T) {
	valid, _ := SignJWT("secret-a", TokenClaims{Sub: "u", Exp: time.Now().Add(time.Hour).Unix()})
	expired, _ := SignJWT("secret-a", TokenClaims{Sub: "u", Exp: time.Now().Add(-time.Minute).Unix()})
	noSub, _ := SignJWT("secret-a", TokenClaims{Exp: time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "wrong secret", token: valid + "x", want: ErrInvalidToken},
		{name: "malformed", token: "abc.def", want: ErrInvalidToken},
		{name: "expired", token: expired, want: ErrTokenExpired},
		{name: "missing subject", token: noSub, want: ErrInvalidToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := VerifyJWT("secret-a", tc.token); !errors.Is(err, tc.want) {
				t.Fatalf("VerifyJWT() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAuthJWTMiddleware(t *testing.T) {
	token, _ := SignJWT("s3cret", TokenClaims{Sub: "user-42", Exp: time.Now().Add(time.Hour).Unix()})
	var seen string
	h := AuthJWT("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "ok", header: "bearer " + token, status: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/contact", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			if tc.status == http.StatusNoContent && seen != "user-42" {
				t.Fatalf("user id in context = %q", seen)
			}
		})
	}
}
