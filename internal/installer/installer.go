package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// On-disk layout relative to the install base directory
const (
	serverDirName     = "server"
	serverBinaryName  = "semdex-server"
	runtimeDirName    = "runtime"
	runtimeBinaryName = "node"
)

// Fetcher downloads an artifact URL to a local destination path
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// HTTPFetcher fetches artifacts over HTTP(S)
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch downloads url into dest, creating parent directories as needed
func (f *HTTPFetcher) Fetch(ctx context.Context, url, dest string) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

// FetchManifest downloads and parses the artifact manifest
func FetchManifest(ctx context.Context, client *http.Client, url string) (*Manifest, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest fetch: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	return ParseManifest(data)
}

// Installer downloads and installs the index server artifact and its node
// runtime under a base directory. Installs are staged in a scratch
// directory and moved into place with directory renames, so a crashed
// install never leaves a half-written installation.
type Installer struct {
	fetcher  Fetcher
	baseDir  string
	platform string
	arch     string
	logger   *slog.Logger
}

// New creates an Installer rooted at baseDir
func New(fetcher Fetcher, baseDir string, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{
		fetcher:  fetcher,
		baseDir:  baseDir,
		platform: runtime.GOOS,
		arch:     runtime.GOARCH,
		logger:   logger,
	}
}

// ServerBinaryPath returns where the installed server binary lives
func (i *Installer) ServerBinaryPath() string {
	return filepath.Join(i.baseDir, serverDirName, exeName(serverBinaryName))
}

// RuntimeBinaryPath returns where the installed runtime binary lives
func (i *Installer) RuntimeBinaryPath() string {
	return filepath.Join(i.baseDir, runtimeDirName, exeName(runtimeBinaryName))
}

// IsInstalled reports whether both the server artifact and the runtime
// binary are present on disk. Pure read, no mutation.
func (i *Installer) IsInstalled() bool {
	return fileExists(i.ServerBinaryPath()) && fileExists(i.RuntimeBinaryPath())
}

// Install resolves the required manifest entries for the current platform
// and installs them. When either entry is missing it returns false without
// touching the filesystem. The scratch directory is removed on every exit
// path.
func (i *Installer) Install(ctx context.Context, manifest *Manifest) (bool, error) {
	serverEntry, ok := manifest.Resolve(EntryServer, i.platform, i.arch, SupportedServerVersions)
	if !ok {
		i.logger.Warn("manifest has no server entry for this platform",
			"platform", i.platform, "arch", i.arch)
		return false, nil
	}

	nodeEntry, ok := manifest.Resolve(EntryNode, i.platform, i.arch, nil)
	if !ok {
		i.logger.Warn("manifest has no runtime entry for this platform",
			"platform", i.platform, "arch", i.arch)
		return false, nil
	}

	if err := os.MkdirAll(i.baseDir, 0o755); err != nil {
		return false, err
	}

	scratch, err := os.MkdirTemp(i.baseDir, "install-*")
	if err != nil {
		return false, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	serverStage := filepath.Join(scratch, serverDirName)
	runtimeStage := filepath.Join(scratch, runtimeDirName)

	if err := i.fetchVerified(ctx, serverEntry, filepath.Join(serverStage, exeName(serverBinaryName))); err != nil {
		return false, fmt.Errorf("failed to download server artifact: %w", err)
	}
	if err := i.fetchVerified(ctx, nodeEntry, filepath.Join(runtimeStage, exeName(runtimeBinaryName))); err != nil {
		return false, fmt.Errorf("failed to download runtime: %w", err)
	}

	// Replace existing installs with a directory swap after staging is
	// complete
	if err := replaceDir(serverStage, filepath.Join(i.baseDir, serverDirName)); err != nil {
		return false, err
	}
	if err := replaceDir(runtimeStage, filepath.Join(i.baseDir, runtimeDirName)); err != nil {
		return false, err
	}

	i.logger.Info("install complete",
		"serverVersion", serverEntry.Version,
		"runtimeVersion", nodeEntry.Version,
		"path", i.baseDir)

	return true, nil
}

// Cleanup removes the installed server and runtime directories. Missing
// paths are ignored, so repeated calls are no-ops.
func (i *Installer) Cleanup() error {
	for _, dir := range []string{
		filepath.Join(i.baseDir, serverDirName),
		filepath.Join(i.baseDir, runtimeDirName),
	} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	return nil
}

// fetchVerified downloads an entry, checks its digest when the manifest
// provides one, and marks it executable
func (i *Installer) fetchVerified(ctx context.Context, entry *Entry, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	if err := i.fetcher.Fetch(ctx, entry.URL, dest); err != nil {
		return err
	}

	if entry.SHA256 != "" {
		digest, err := fileDigest(dest)
		if err != nil {
			return err
		}
		if digest != entry.SHA256 {
			return fmt.Errorf("digest mismatch for %s: got %s want %s", entry.Name, digest, entry.SHA256)
		}
	}

	return os.Chmod(dest, 0o755)
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// replaceDir moves src into place at dest, removing any previous install
func replaceDir(src, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to remove old install at %s: %w", dest, err)
	}
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("failed to move install into place: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
