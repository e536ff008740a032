// Package main hosts the reelcut CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot local processing, job status
// inspection against the shared store or a running daemon's HTTP API, a
// foreground daemon mode, and configuration scaffolding. It centralizes
// configuration resolution so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
