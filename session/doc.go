// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the Session struct) live in the core package to
// centralize domain contracts; keeping only implementations here prevents
// higher level packages from depending on concrete storage.
//
// Two backends are provided: a volatile in-memory store for tests and
// ephemeral deployments, and a Postgres store for durable conversation
// memory.
package session
