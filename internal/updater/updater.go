// Package updater checks GitHub for a newer bkit release.
//
// The bkit binary ships inside the plugin directory, so upgrades go
// through the host's plugin manager; this package only tells the user
// that one is due.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// Repo is the repository whose releases are checked.
	Repo = "bkit-dev/bkit"

	// DefaultEndpoint is the GitHub API endpoint for the latest release.
	DefaultEndpoint = "https://api.github.com/repos/" + Repo + "/releases/latest"

	checkTimeout = 10 * time.Second
)

// Release holds the relevant fields from a GitHub release.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
}

// Result is the outcome of a check.
type Result struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// Checker queries the releases endpoint.
type Checker struct {
	client   *http.Client
	endpoint string
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option { return func(ch *Checker) { ch.client = c } }

// WithEndpoint points the checker at another releases URL.
func WithEndpoint(url string) Option { return func(ch *Checker) { ch.endpoint = url } }

// NewChecker creates a Checker with a 10s client.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client:   &http.Client{Timeout: checkTimeout},
		endpoint: DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check compares current against the latest release. Development builds
// ("dev") never report an update.
func (c *Checker) Check(ctx context.Context, current string) (*Result, error) {
	result := &Result{CurrentVersion: Normalize(current)}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return result, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "bkit/"+result.CurrentVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("checking latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return result, fmt.Errorf("parsing release info: %w", err)
	}

	result.LatestVersion = Normalize(release.TagName)
	result.ReleaseURL = release.HTMLURL
	result.UpdateAvailable = IsNewer(result.CurrentVersion, result.LatestVersion)
	return result, nil
}

// Normalize strips a leading "v".
func Normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// IsNewer reports whether latest is a higher major.minor.patch than
// current. Pre-release suffixes are ignored.
func IsNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	c, l := parts(current), parts(latest)
	for i := range c {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

func parts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		out[i] = leadingInt(p)
	}
	return out
}

// leadingInt parses the digits at the start of s ("3-rc1" → 3).
func leadingInt(s string) int {
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
