package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"assetra.org/internal/auth"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "case insensitive scheme", header: "bearer abc", want: "abc"},
		{name: "empty", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "scheme only", header: "Bearer ", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractBearerToken(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWithAuthRejectsGarbageToken(t *testing.T) {
	t.Setenv("ASSETRA_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	api := New(ReadyProbe{}, "test", nil, nil)
	handler := RequestID(api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/tokens/1", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWithAuthPassesClaimsThrough(t *testing.T) {
	t.Setenv("ASSETRA_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	token, err := auth.GenerateToken("alice", []string{"registrar"}, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	api := New(ReadyProbe{}, "test", nil, nil)
	var gotSubject string
	var gotRoles []string
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = auth.UserIDFromContext(r.Context())
		gotRoles = auth.RolesFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/tokens/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotSubject != "alice" {
		t.Fatalf("unexpected subject: %q", gotSubject)
	}
	if len(gotRoles) != 1 || gotRoles[0] != "registrar" {
		t.Fatalf("unexpected roles: %v", gotRoles)
	}
}

func TestPublicPathsSkipAuth(t *testing.T) {
	api := New(ReadyProbe{}, "test", nil, nil)
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/v1/info", "/v1/auth/token"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected %s public, got %d", path, rr.Code)
		}
	}
}
