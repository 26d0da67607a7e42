// Package plugin defines the capability contracts implemented by tracker and
// download-client plugins, and the ordered registry the managers dispatch over.
package plugin

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Settings is an opaque, plugin-defined key-value payload. The managers only
// forward it.
type Settings map[string]any

// FormField describes one input of a settings or topic form.
type FormField struct {
	Type  string `json:"type" yaml:"type"`
	Model string `json:"model" yaml:"model"`
	Label string `json:"label" yaml:"label"`
	Flex  int    `json:"flex,omitempty" yaml:"flex,omitempty"`
}

// FormRow groups fields rendered on a single line.
type FormRow struct {
	Type    string      `json:"type" yaml:"type"`
	Content []FormField `json:"content" yaml:"content"`
}

// Form is a static presentation descriptor. It is never interpreted here.
type Form []FormRow

// Torrent is what a download client reports for a torrent it knows about.
type Torrent struct {
	Name      string    `json:"name" yaml:"name"`
	DateAdded time.Time `json:"date_added" yaml:"date_added"`
}

// DecodeSettings copies s into the struct pointed to by out using
// mapstructure tags. Decoding is weak so "8080" and 8080 both fill an int.
func DecodeSettings(s Settings, out any) error {
	if err := mapstructure.WeakDecode(map[string]any(s), out); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}
	return nil
}

// EncodeSettings turns a mapstructure-tagged struct into Settings.
func EncodeSettings(in any) (Settings, error) {
	out := map[string]any{}
	if err := mapstructure.Decode(in, &out); err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return Settings(out), nil
}
