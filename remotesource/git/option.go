package git

import "log/slog"

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBranch selects the branch to clone and pull. Default "main".
func WithBranch(branch string) Option {
	return func(g *Fetcher) {
		if branch != "" {
			g.branch = branch
		}
	}
}

// WithDir restricts discovery to a subdirectory of the repository, e.g. "prompts".
func WithDir(dir string) Option {
	return func(g *Fetcher) {
		g.dir = dir
	}
}

// WithDepth sets the clone depth; 0 clones full history. Default 1.
func WithDepth(depth int) Option {
	return func(g *Fetcher) {
		g.depth = depth
	}
}

// WithAuth authenticates HTTPS remotes with a personal access token
// (sent as basic auth with user "x-access-token").
func WithAuth(token string) Option {
	return func(g *Fetcher) {
		g.authToken = token
	}
}

// WithCloneDir keeps the clone in dir across runs instead of a temp directory.
// An existing clone in dir is opened and pulled; Close leaves it in place.
func WithCloneDir(dir string) Option {
	return func(g *Fetcher) {
		g.cloneDir = dir
	}
}

// WithLogger sets the logger for clone and pull messages. Nil leaves slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Fetcher) {
		if l != nil {
			g.logger = l
		}
	}
}
