// Package platform decides which entry of the patch index applies to
// the local installation. Host details come from runtime and gopsutil;
// the release channel (Steam vs itch.io) is inferred from the game
// directory's contents, with an optional Lua selector script as an
// override hook.
package platform

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Release channel names, matching the keys published in the patch index.
const (
	VariantSteam = "steam"
	VariantItch  = "itch"
)

// Info contains host platform information.
type Info struct {
	OS            string // "linux", "darwin", "windows"
	Arch          string // GOARCH
	Distro        string // distro ID (Linux only, e.g. "ubuntu")
	DistroVersion string // distro version (Linux only, e.g. "22.04")
}

// Detect gathers host information. On Linux the distribution details
// come from gopsutil; when that fails, OS and arch detection still
// succeed and the distro fields stay empty.
func Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if runtime.GOOS == "linux" {
		distro, _, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Graceful fallback: variant selection rarely needs distro
			// details.
			return info, nil
		}
		info.Distro = distro
		info.DistroVersion = version
	}

	return info, nil
}

// steamMarkers are files whose presence in the game directory identify
// a Steam installation.
var steamMarkers = []string{"steam_api.dll", "steam_api64.dll"}

// DetectVariant inspects gameDir and returns the release channel. A
// Steam API DLL next to the game binary means a Steam copy; everything
// else defaults to itch.
func DetectVariant(gameDir string) string {
	for _, marker := range steamMarkers {
		info, err := os.Stat(filepath.Join(gameDir, marker))
		if err == nil && !info.IsDir() {
			return VariantSteam
		}
	}
	return VariantItch
}
