// Package main hosts the leafspec CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the three pipeline stages (scan,
// export, check) plus the supporting operations: baseline construction,
// vegetation indices, spectra plots, run history, watch mode, and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
