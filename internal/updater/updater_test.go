package updater

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- Version comparison ---

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"v1.5.2": "1.5.2",
		"1.5.2":  "1.5.2",
		" v0.1 ": "0.1",
		"dev":    "dev",
		"":       "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		current, latest string
		want            bool
	}{
		{"1.5.0", "1.5.1", true},
		{"1.5.1", "1.5.1", false},
		{"1.6.0", "1.5.9", false},
		{"1.5", "1.5.1", true},
		{"1.9.0", "1.10.0", true},
		{"2.0.0-rc1", "2.0.0", false},
		{"dev", "9.9.9", false},
		{"1.0.0", "", false},
	}
	for _, tt := range tests {
		if got := IsNewer(tt.current, tt.latest); got != tt.want {
			t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
		}
	}
}

// --- Checker ---

func newTestServer(t *testing.T, release Release, status int) *Checker {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Errorf("missing User-Agent")
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(release)
	}))
	t.Cleanup(ts.Close)
	return NewChecker(WithHTTPClient(ts.Client()), WithEndpoint(ts.URL))
}

func TestCheck_UpdateAvailable(t *testing.T) {
	c := newTestServer(t, Release{TagName: "v1.6.0", HTMLURL: "https://github.com/bkit-dev/bkit/releases/v1.6.0"}, http.StatusOK)

	result, err := c.Check(context.Background(), "v1.5.2")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.UpdateAvailable || result.LatestVersion != "1.6.0" || result.CurrentVersion != "1.5.2" {
		t.Errorf("result = %+v", result)
	}
	if result.ReleaseURL == "" {
		t.Error("expected release URL")
	}
}

func TestCheck_AlreadyLatest(t *testing.T) {
	c := newTestServer(t, Release{TagName: "v1.5.2"}, http.StatusOK)
	result, err := c.Check(context.Background(), "1.5.2")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.UpdateAvailable {
		t.Errorf("result = %+v", result)
	}
}

func TestCheck_APIError(t *testing.T) {
	c := newTestServer(t, Release{}, http.StatusForbidden)
	result, err := c.Check(context.Background(), "1.0.0")
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if result == nil || result.CurrentVersion != "1.0.0" {
		t.Errorf("result should still carry the current version: %+v", result)
	}
}

func TestCheck_Canceled(t *testing.T) {
	c := newTestServer(t, Release{TagName: "v2.0.0"}, http.StatusOK)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Check(ctx, "1.0.0"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
