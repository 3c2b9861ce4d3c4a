// Package core contains the shared conversation model used by every other
// chatmesh package: events, role-based content with polymorphic parts,
// session snapshots, the SessionStore contract and the per-run execution
// contexts handed to supervisors, workers and tools.
package core
