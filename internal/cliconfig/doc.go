// Package cliconfig assembles engine.Config from three layers, applied
// file → env → flag: a TOML config file, WALOY_* environment variables,
// and command-line flags. Later layers only override what they explicitly
// set, tracked via a "changed" set the same way the teacher's own CLI
// config layering works.
package cliconfig
