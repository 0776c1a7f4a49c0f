// Package internal contains the implementation packages for devkit.
//
// # Package Organization
//
//   - appctx: per-invocation context shared by every command
//   - build: esbuild bundling, source transforms, type checking and plugin install
//   - bump: next-version arithmetic
//   - changelog: changelog sections and the operator review pause
//   - config: .devkit.yml loading, defaults and validation
//   - console: coloured status lines
//   - errors: structured errors and tool output parsing
//   - logging: slog-based structured logging
//   - project: package.json, lock files and plugin manifests
//   - release: the release workflow, its dry-run plan and release assets
//   - reload: websocket notifications for development rebuilds
//   - runner: allowlisted subprocesses
//   - steps: fail-fast step lists used by build and release
//   - tooling: lint, format and spellcheck steps
//   - validation: path, command and origin checks
//   - vcs: git and gh clients
//   - version: build information of the devkit binary
//   - watcher: debounced recursive file watching
//
// # Inter-Package Communication
//
// Commands build an appctx.Context once and hand it to the workflow they
// run. Workflows are step lists: build.Builder and release.Orchestrator
// produce steps, steps.Run executes them and reports progress to a
// steps.Observer (the console). Every external tool goes through a
// runner.Runner, so tests substitute runner.Fake and an afero memory
// filesystem.
package internal
