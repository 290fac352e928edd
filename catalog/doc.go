// Package catalog owns the name → Definition mapping loaded from a Source and replaces it
// atomically on reload. Readers take the current Snapshot without locking; a render that
// captured a definition from an older snapshot completes against that version.
package catalog
