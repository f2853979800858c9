// Package app contains the core application logic. It wires workspace
// loading, extension resolution, the conditional dependency closure and
// the build-step executor into one run, decoupled from any specific
// entrypoint like a CLI.
package app
