// Package manifest models the remote patch index: a JSON document
// mapping platform names to an archive URL and an ordered list of
// (patch, source) path pairs. Field names, including the "patchs"
// spelling, are a published wire contract and must not change.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PatchEntry pairs a patch file inside the archive with the game file it
// applies to. Both paths are relative and ordered: entry order is
// application order.
type PatchEntry struct {
	PatchPath  string `json:"patchPath"`
	SourcePath string `json:"sourcePath"`
}

// Platform describes everything needed to patch one release channel.
type Platform struct {
	FileURL string `json:"fileUrl"`
	// SignatureURL optionally points at a detached GPG signature for the
	// archive. Absent in older indexes.
	SignatureURL string       `json:"signatureUrl,omitempty"`
	Patches      []PatchEntry `json:"patchs"`
}

// Index maps a platform name (e.g. "steam", "itch") to its patch set.
type Index map[string]Platform

// ErrUnknownPlatform is returned when a lookup names a platform the
// index does not carry.
var ErrUnknownPlatform = errors.New("platform not present in index")

// Parse decodes and validates an index document.
func Parse(data []byte) (Index, error) {
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("index lists no platforms")
	}
	for name, platform := range index {
		if platform.FileURL == "" {
			return nil, fmt.Errorf("platform %q has no fileUrl", name)
		}
		for i, entry := range platform.Patches {
			if entry.PatchPath == "" || entry.SourcePath == "" {
				return nil, fmt.Errorf("platform %q patch %d is missing a path", name, i)
			}
		}
	}
	return index, nil
}

// Fetcher retrieves a small resource into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Fetch downloads and parses the index at url.
func Fetch(ctx context.Context, f Fetcher, url string) (Index, error) {
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	return Parse(data)
}

// Platform returns the patch set for name. The error lists the platforms
// the index does carry, since a miss usually means a detection problem.
func (i Index) Platform(name string) (Platform, error) {
	platform, ok := i[name]
	if !ok {
		return Platform{}, fmt.Errorf("%w: %q (index has: %s)",
			ErrUnknownPlatform, name, strings.Join(i.Names(), ", "))
	}
	return platform, nil
}

// Names returns the platform names in the index, sorted.
func (i Index) Names() []string {
	names := make([]string, 0, len(i))
	for name := range i {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
