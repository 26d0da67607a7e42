package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	runtime "runtime/debug"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
)

var (
	Version string
	Commit  string
	Date    string
	BuiltBy string
)

// githubAPI is the base url of the release lookup.
var githubAPI = "https://api.github.com"

func init() {
	if Version == "" {
		Version = getVersion()
	}
	if Commit == "" {
		Commit = getCommit()
	}
	if Date == "" {
		Date = getBuildDate()
	}
	if BuiltBy == "" {
		BuiltBy = getBuiltBy()
	}
}

func getVersion() string {
	if info, ok := runtime.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func buildSetting(key string) (string, bool) {
	info, ok := runtime.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value, true
		}
	}
	return "", false
}

func getCommit() string {
	if rev, ok := buildSetting("vcs.revision"); ok {
		if len(rev) >= 7 {
			return rev[:7]
		}
		return rev
	}
	return "none"
}

func getBuildDate() string {
	if t, ok := buildSetting("vcs.time"); ok {
		return t
	}
	return "unknown"
}

func getBuiltBy() string {
	output, err := exec.Command("git", "config", "--get", "user.name").Output()
	if err == nil && len(output) > 0 {
		return strings.TrimSpace(string(output))
	}
	return "unknown"
}

// Release is the latest published release.
type Release struct {
	TagName     string    `json:"tag_name"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// IsNewer reports whether latest is a higher semantic version than current.
func IsNewer(current, latest string) (bool, error) {
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("invalid current version %q: %w", current, err)
	}
	lat, err := semver.NewVersion(latest)
	if err != nil {
		return false, fmt.Errorf("invalid release version %q: %w", latest, err)
	}
	return lat.GreaterThan(cur), nil
}

// LatestRelease fetches the latest release of org/repo from GitHub.
func LatestRelease(ctx context.Context, org, repo string) (*Release, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", githubAPI, org, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", fmt.Sprintf("%s/%s", repo, Version))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API request failed: %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse GitHub response: %w", err)
	}
	return &release, nil
}

// CheckForUpdates logs the build info and whether a newer release exists.
// Lookup failures are logged, never returned.
func CheckForUpdates(ctx context.Context, org, repo string) error {
	log.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("buildDate", Date).
		Str("builtBy", BuiltBy).
		Msg("monitorrent version info")

	release, err := LatestRelease(ctx, org, repo)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check for updates")
		return nil
	}

	latestVersion := strings.TrimPrefix(release.TagName, "v")

	if Version == "dev" {
		log.Info().
			Str("latestRelease", latestVersion).
			Time("publishedAt", release.PublishedAt).
			Msg("running development version")
		return nil
	}

	newer, err := IsNewer(Version, latestVersion)
	if err != nil {
		log.Warn().Err(err).Msg("failed to compare versions")
		return nil
	}

	if newer {
		log.Info().
			Str("current", Version).
			Str("latest", latestVersion).
			Time("publishedAt", release.PublishedAt).
			Str("updateUrl", release.HTMLURL).
			Msg("update available")
	} else {
		log.Info().
			Time("publishedAt", release.PublishedAt).
			Msg("you are running the latest version")
	}

	return nil
}
