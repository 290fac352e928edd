// Package git provides a Fetcher that reads YAML manifests from a Git repository.
// It clones the repo on first use, pulls on every List and reads files from the working tree.
// Use NewFetcher with the repo URL and wrap it with remotesource.New to feed a catalog.
package git
