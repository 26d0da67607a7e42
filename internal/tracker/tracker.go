// Package tracker provides the tracker plugins.
//
// A tracker owns the topics whose type matches its name: it stores their
// plugin specific attributes in its own side table and knows how to download
// the current .torrent file for them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/topic"
)

// maxTorrentSize caps downloaded .torrent files.
const maxTorrentSize = 10 << 20

// Extensions returns the topic side tables of all trackers.
func Extensions() []topic.Extension {
	return []topic.Extension{
		&ptpTopic{},
		&fileTopic{},
	}
}

// Models returns the tracker tables that are not topic side tables.
func Models() []any {
	return []any{
		&ptpCredentials{},
	}
}

// NewHTTPClient returns the client trackers use for remote calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// topicParams holds the settings common to every topic.
type topicParams struct {
	DisplayName string `mapstructure:"display_name"`
}

func displayNameRow() plugin.FormRow {
	return plugin.FormRow{
		Type: "row",
		Content: []plugin.FormField{
			{Type: "text", Model: "display_name", Label: "Name", Flex: 100},
		},
	}
}

// StatusError is returned when a tracker answers with an unexpected status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// fetch performs a GET request and returns the body of a 200 response.
// Network failures and 5xx answers are retried, other statuses are not.
func fetch(ctx context.Context, client *http.Client, rawURL string, header http.Header) ([]byte, error) {
	return backoff.Retry(ctx, func() ([]byte, error) {
		data, err := fetchOnce(ctx, client, rawURL, header)
		var se *StatusError
		if errors.As(err, &se) && se.Code < http.StatusInternalServerError {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}, backoff.WithBackOff(newBackOff()), backoff.WithMaxTries(maxTries))
}

const maxTries = 3

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInterval
	return b
}

// retryInterval is the first wait between two attempts.
var retryInterval = 500 * time.Millisecond

func fetchOnce(ctx context.Context, client *http.Client, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTorrentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// isHTTP reports whether raw is an absolute http(s) url.
func isHTTP(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

// addTopic creates a topic unless url is already watched.
func addTopic(ctx context.Context, store *topic.Store, t *topic.Topic, ext topic.Extension) (bool, error) {
	_, err := store.FindByURL(ctx, t.URL)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, topic.ErrNotFound) {
		return false, err
	}

	if err := store.Create(ctx, t, ext); err != nil {
		return false, err
	}
	return true, nil
}
