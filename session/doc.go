// Package session houses the concrete implementation of core.SessionRegistry.
// The interface itself (and the ValidationSession struct) live in the core
// package to centralize domain contracts. Keeping only implementations here
// prevents higher level packages (monitor, halt) from depending on concrete
// storage.
//
// Add additional backends (Redis, Postgres, etc.) in sub‑packages without
// changing any calling code – only the wiring layer needs to decide which
// implementation to instantiate.
package session
