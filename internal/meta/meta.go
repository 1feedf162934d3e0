// Package meta carries build-level identity shared by the CLI surfaces.
package meta

const name = "mysqlmcp"

// Version is the release version stamped into banners and logs.
// Overridden at build time via -ldflags "-X ...meta.Version=v1.2.3".
var Version = "dev"

// Name returns the canonical binary name.
func Name() string { return name }
