// Package platform reports the operating system and architecture the
// installer runs on, and the markers used to pick matching release assets.
package platform

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Info contains platform detection information.
type Info struct {
	OS         string // "linux", "darwin", "windows"
	Arch       string // GOARCH
	KernelArch string // as reported by the kernel, e.g. "x86_64"; empty if unknown
	Platform   string // distro or product name, e.g. "ubuntu", "Microsoft Windows 11 Pro"
	Version    string // platform version
}

// Detect uses runtime.GOOS and runtime.GOARCH for the basics and gopsutil
// for kernel architecture and platform details. gopsutil failures are not
// fatal; the fields stay empty unless the context was cancelled.
func Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if arch, err := host.KernelArch(); err == nil {
		info.KernelArch = arch
	}

	platform, _, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return info, nil
	}
	info.Platform = platform
	info.Version = version
	return info, nil
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// ExeName appends ".exe" on Windows.
func (i *Info) ExeName(name string) string {
	if i.IsWindows() {
		return name + ".exe"
	}
	return name
}

// BitnessMarker is the architecture marker used in Git for Windows asset
// names ("64-bit", "32-bit", "arm64"). Empty when no such build exists.
func (i *Info) BitnessMarker() string {
	switch i.Arch {
	case "amd64":
		return "64-bit"
	case "386":
		return "32-bit"
	case "arm64":
		return "arm64"
	}
	return ""
}
