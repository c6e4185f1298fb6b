// Package core provides the foundational domain types and interfaces used by
// AgentGuard. It defines the core abstractions for:
//
//   - Coherence results and levels (ordinal scoring outcomes)
//   - Coherence events (immutable validation records)
//   - Validation sessions (lifecycle containers with halt history)
//   - Halt reasons, decisions and events
//   - Optimizer messages and agent registration records
//
// The package intentionally keeps implementation concerns (scoring heuristics,
// monitoring pipeline, message routing) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
