// Package torrent reads the parts of .torrent metainfo files we care about.
package torrent

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/bencode"
)

var ErrInvalid = errors.New("invalid torrent file")

// Meta is the summary of a .torrent file.
type Meta struct {
	Name string
	// InfoHash is the upper-case hex SHA-1 of the bencoded info dictionary.
	InfoHash string
	Size     int64
	Files    int
}

type metainfo struct {
	Info bencode.RawMessage `bencode:"info"`
}

type info struct {
	Name   string `bencode:"name"`
	Length int64  `bencode:"length"`
	Files  []struct {
		Length int64    `bencode:"length"`
		Path   []string `bencode:"path"`
	} `bencode:"files"`
}

// Parse decodes raw .torrent content.
func Parse(data []byte) (*Meta, error) {
	var m metainfo
	if err := bencode.DecodeBytes(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(m.Info) == 0 {
		return nil, fmt.Errorf("%w: missing info dictionary", ErrInvalid)
	}

	var i info
	if err := bencode.DecodeBytes(m.Info, &i); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	sum := sha1.Sum(m.Info)
	meta := &Meta{
		Name:     i.Name,
		InfoHash: strings.ToUpper(hex.EncodeToString(sum[:])),
		Files:    1,
	}

	// single file torrents carry the length directly
	if i.Length > 0 {
		meta.Size = i.Length
	} else {
		meta.Files = len(i.Files)
		for _, f := range i.Files {
			meta.Size += f.Length
		}
	}

	if meta.Name == "" {
		meta.Name = meta.InfoHash
	}

	return meta, nil
}

// NormalizeHash returns hash in the upper-case form used by Meta.
func NormalizeHash(hash string) string {
	return strings.ToUpper(strings.TrimSpace(hash))
}
