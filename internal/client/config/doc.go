// Package config handles configuration for the sync client: defaults,
// optional JSON overlay, and command-line flags, in that order of
// precedence.
package config
