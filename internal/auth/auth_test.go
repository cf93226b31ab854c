package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewService("secret")
	token, err := s.IssueToken("user-1")
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.ValidateToken(token)
	if err != nil || p.Subject != "user-1" {
		t.Fatalf("ValidateToken = %+v, %v", p, err)
	}
}

func TestValidateTokenExpiry(t *testing.T) {
	s := NewService("secret")
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	token := mustIssue(t, s)

	p, err := s.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if want := issued.Add(tokenTTL); !p.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", p.ExpiresAt, want)
	}

	s.now = func() time.Time { return issued.Add(tokenTTL + time.Minute) }
	if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token past expiry: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	s := NewService("secret")
	good, _ := s.IssueToken("user-1")

	expired := NewService("secret")
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, _ := expired.IssueToken("user-1")

	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
	}).SignedString([]byte("secret"))

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": mustIssue(t, NewService("other")),
		"expired":      old,
		"no subject":   noSub,
		"no expiry":    noExp,
		"tampered":     good + "x",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func mustIssue(t *testing.T, s *Service) string {
	t.Helper()
	token, err := s.IssueToken("user-1")
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	s := NewService("secret")
	var seen Principal
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	token := mustIssue(t, s)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = Principal{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && (seen.Subject != "user-1" || seen.ExpiresAt.IsZero()) {
				t.Fatalf("principal = %+v", seen)
			}
		})
	}
}

func TestSubjectFromContext(t *testing.T) {
	if got := SubjectFromContext(context.Background()); got != "" {
		t.Fatalf("unauthenticated subject = %q", got)
	}
	ctx := WithPrincipal(context.Background(), Principal{Subject: "pen-7"})
	if got := SubjectFromContext(ctx); got != "pen-7" {
		t.Fatalf("subject = %q", got)
	}
}

func TestHandlerIssueToken(t *testing.T) {
	s := NewService("secret")
	h := NewHandler(s)

	rec := httptest.NewRecorder()
	h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString(`{"subject":"pen-7"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if p, err := s.ValidateToken(resp.Token); err != nil || p.Subject != "pen-7" {
		t.Fatalf("issued token = %+v, %v", p, err)
	}

	rec = httptest.NewRecorder()
	h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty subject status = %d", rec.Code)
	}
}
