// Package client provides the download client plugins.
//
// Every client keeps its settings in a single-row table and opens a fresh
// backend connection for each call, so settings changes apply immediately.
// An unconfigured or unreachable client declines with false instead of
// failing; errors are only returned once a connection has been made.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
)

// Models returns the settings tables of all clients for migration.
func Models() []any {
	return []any{
		&qbittorrentSettings{},
		&rtorrentSettings{},
		&delugeSettings{},
		&watchDirSettings{},
	}
}

// settingsTable stores the single settings row of a client.
type settingsTable[T any] struct {
	db *gorm.DB
}

// load returns nil when the client was never configured.
func (s settingsTable[T]) load(ctx context.Context) (*T, error) {
	var row T
	if err := s.db.WithContext(ctx).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load client settings: %w", err)
	}
	return &row, nil
}

func (s settingsTable[T]) save(ctx context.Context, row *T) error {
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("failed to save client settings: %w", err)
	}
	return nil
}

// hostURL turns a host and optional port into a base URL, defaulting to http.
func hostURL(host string, port int) (string, error) {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}
	if port > 0 && u.Port() == "" {
		u.Host = u.Hostname() + ":" + strconv.Itoa(port)
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

func hostForm(extra ...plugin.FormField) plugin.Form {
	return plugin.Form{
		{
			Type: "row",
			Content: []plugin.FormField{
				{Type: "text", Model: "host", Label: "Host", Flex: 80},
				{Type: "text", Model: "port", Label: "Port", Flex: 20},
			},
		},
		{
			Type:    "row",
			Content: extra,
		},
	}
}
