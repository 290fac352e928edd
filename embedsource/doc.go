// Package embedsource provides a catalog.Source over an fs.FS such as embed.FS, for prompts
// compiled into the binary. Use New with the FS and a root directory; the catalog loads it
// like any other source, and Reload is a cheap no-op re-read.
package embedsource
