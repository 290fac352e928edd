package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/manifest"
	"github.com/skosovsky/promptcatalog/remotesource"
)

// Fetcher reads YAML manifests from a Git repository (clone on first use, pull on every List).
// Implements remotesource.Fetcher. Call Close to remove the local clone.
var _ remotesource.Fetcher = (*Fetcher)(nil)

// Fetcher holds repo URL, clone options, and local path.
type Fetcher struct {
	repoURL   string
	branch    string
	dir       string
	depth     int
	authToken string
	cloneDir  string // persistent clone location; empty means a temp dir removed by Close
	logger    *slog.Logger

	mu       sync.Mutex
	localDir string
	repo     *git.Repository
}

// NewFetcher creates a Fetcher. Repo is cloned on first List or Fetch. Use Close to cleanup.
// Returns error if repoURL is empty.
func NewFetcher(repoURL string, opts ...Option) (*Fetcher, error) {
	if strings.TrimSpace(repoURL) == "" {
		return nil, fmt.Errorf("remotesource/git: repo URL must not be empty")
	}
	g := &Fetcher{
		repoURL: repoURL,
		branch:  "main",
		depth:   1,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if strings.TrimSpace(g.branch) == "" {
		return nil, fmt.Errorf("remotesource/git: branch must not be empty")
	}
	return g, nil
}

// Location returns the repository URL, branch and subdirectory.
func (g *Fetcher) Location() string {
	loc := g.repoURL + "@" + g.branch
	if g.dir != "" {
		loc += ":" + g.dir
	}
	return loc
}

// List refreshes the clone and returns the stems of *.yaml and *.yml files in the configured
// directory, in lexical order. A name present with both extensions is listed once.
// A missing directory in the repository yields promptcatalog.ErrSourceUnavailable.
func (g *Fetcher) List(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensureClone(ctx, true); err != nil {
		return nil, fmt.Errorf("%w: %w", remotesource.ErrFetchFailed, err)
	}
	base, err := g.baseDir()
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no directory %q", promptcatalog.ErrSourceUnavailable, g.repoURL, g.dir)
		}
		return nil, fmt.Errorf("%w: read %s: %w", remotesource.ErrFetchFailed, base, err)
	}
	var names []string
	seen := make(map[string]bool, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || !manifest.IsManifestFile(d.Name()) {
			continue
		}
		name := manifest.NameFromPath(d.Name())
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// Fetch reads the manifest from the working tree: {dir}/{name}.yaml or {dir}/{name}.yml.
// It does not pull; List refreshes the clone once per reload.
func (g *Fetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := promptcatalog.ValidateName(name); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensureClone(ctx, false); err != nil {
		return nil, fmt.Errorf("%w: %w", remotesource.ErrFetchFailed, err)
	}
	baseDir, err := g.baseDir()
	if err != nil {
		return nil, err
	}
	for _, rel := range remotesource.CandidatePaths(name) {
		cleanPath := filepath.Clean(filepath.Join(baseDir, rel))
		relPath, relErr := filepath.Rel(baseDir, cleanPath)
		if relErr != nil || strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
			continue
		}
		data, err := os.ReadFile(cleanPath) // #nosec G304 -- cleanPath is validated via filepath.Rel to prevent path traversal
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: read %s: %w", remotesource.ErrFetchFailed, cleanPath, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", remotesource.ErrNotFound, name)
}

// baseDir returns the manifest directory inside the clone, rejecting a dir that escapes it.
func (g *Fetcher) baseDir() (string, error) {
	root := filepath.Clean(g.localDir)
	base := filepath.Clean(filepath.Join(root, g.dir))
	rel, err := filepath.Rel(root, base)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: directory %q escapes the repository", remotesource.ErrFetchFailed, g.dir)
	}
	return base, nil
}

// Head returns the commit hash checked out in the clone, or "" before the first clone.
func (g *Fetcher) Head() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.repo == nil {
		return ""
	}
	ref, err := g.repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}

func (g *Fetcher) auth() *http.BasicAuth {
	if g.authToken == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: g.authToken,
	}
}

func (g *Fetcher) ensureClone(ctx context.Context, refresh bool) error {
	if g.repo != nil {
		if refresh {
			g.pull(ctx)
		}
		return nil
	}
	if g.cloneDir != "" {
		if repo, err := git.PlainOpen(g.cloneDir); err == nil {
			g.localDir = g.cloneDir
			g.repo = repo
			if refresh {
				g.pull(ctx)
			}
			return nil
		}
	}
	dir := g.cloneDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "promptcatalog-git-*")
		if err != nil {
			return fmt.Errorf("temp dir: %w", err)
		}
		dir = tmp
	}
	cloneOpts := &git.CloneOptions{
		URL:           g.repoURL,
		ReferenceName: plumbing.NewBranchReferenceName(g.branch),
		SingleBranch:  true,
		Progress:      nil,
	}
	if g.depth > 0 {
		cloneOpts.Depth = g.depth
	}
	if a := g.auth(); a != nil {
		cloneOpts.Auth = a
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		if g.cloneDir == "" {
			_ = os.RemoveAll(dir)
		}
		return fmt.Errorf("clone: %w", err)
	}
	g.localDir = dir
	g.repo = repo
	g.logger.Info("cloned prompt repository", "url", g.repoURL, "branch", g.branch, "dir", dir)
	return nil
}

// pull refreshes the working tree. Failures keep the existing clone (stale data) and are logged.
// file:// URLs are read once; a local bare path has no remote to pull from.
func (g *Fetcher) pull(ctx context.Context) {
	if strings.HasPrefix(g.repoURL, "file://") {
		return
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		g.logger.Warn("git worktree unavailable, using cached clone", "err", err)
		return
	}
	pullOpts := &git.PullOptions{
		ReferenceName: plumbing.NewBranchReferenceName(g.branch),
		SingleBranch:  true,
	}
	if a := g.auth(); a != nil {
		pullOpts.Auth = a
	}
	err = wt.PullContext(ctx, pullOpts)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		g.logger.Warn("git pull failed, using cached clone", "url", g.repoURL, "err", err)
	}
}

// Close removes the local clone directory unless it was set with WithCloneDir.
// Safe to call multiple times.
func (g *Fetcher) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.localDir == "" {
		return nil
	}
	dir := g.localDir
	g.localDir = ""
	g.repo = nil
	if g.cloneDir != "" {
		return nil
	}
	return os.RemoveAll(dir)
}
