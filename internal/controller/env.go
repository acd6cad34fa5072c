package controller

import (
	"os"
	"runtime"
	"strings"
)

// Environment markers that disable the index subsystem entirely
const (
	// envCloudShell is set on restricted cloud-hosted desktops where
	// spawning a local index server is not permitted
	envCloudShell = "CLOUD_SHELL"

	// incompatibleOSID identifies the OS variant whose bundled runtime is
	// too old for the index server
	incompatibleOSID = "chromeos"
)

// hostEnv abstracts the host probes so gating is testable
type hostEnv struct {
	goos      string
	getenv    func(string) string
	osRelease func() ([]byte, error)
}

func defaultHostEnv() hostEnv {
	return hostEnv{
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		osRelease: func() ([]byte, error) {
			return os.ReadFile("/etc/os-release")
		},
	}
}

// compatible reports whether this host can run the index subsystem, and
// when it cannot, why
func (e hostEnv) compatible() (bool, string) {
	if e.goos == "js" || e.goos == "wasip1" {
		return false, "browser-hosted runtime"
	}

	if v := e.getenv(envCloudShell); v == "true" || v == "1" {
		return false, "restricted cloud desktop"
	}

	if e.goos == "linux" {
		if data, err := e.osRelease(); err == nil && osReleaseID(string(data)) == incompatibleOSID {
			return false, "incompatible os variant"
		}
	}

	return true, ""
}

// osReleaseID extracts the ID field from os-release content
func osReleaseID(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if rest, ok := strings.CutPrefix(line, "ID="); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`)
		}
	}
	return ""
}
