// Package filesource provides a catalog.Source over one directory of YAML manifests.
// Each {dir}/{name}.yaml or {dir}/{name}.yml file becomes the definition {name}; files are
// listed in lexical order and subdirectories are ignored. Watch reports file changes via
// fsnotify so callers can trigger a reload.
package filesource
