// Package config persists canopy's small amount of host-side state.
//
// Configuration lives in a single directory, by default ~/.config/canopy,
// overridable per command with --config-path. The directory contains:
//
//   - providers.yaml — the allow-list of active discovery provider ids,
//     read once per root-node production. When the file has never been
//     written, every registered provider is treated as active.
//   - topology.yaml — an optional topology definition for the built-in
//     DocumentDB demo provider; absent, a sample topology is served.
//
// The Watcher monitors the directory with fsnotify and reports edits of
// providers.yaml so a running server can invalidate its tree when the
// allow-list changes out from under it.
package config
