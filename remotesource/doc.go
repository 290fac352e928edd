// Package remotesource provides a catalog.Source that loads YAML manifests through a Fetcher
// (HTTP or Git). Every catalog reload lists the remote index and fetches each manifest again,
// so there is no cache to evict. Use New with an implementation of Fetcher (e.g. NewHTTPFetcher).
package remotesource
