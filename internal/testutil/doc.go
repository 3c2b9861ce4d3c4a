// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing core objects (sessions, events, tool parts).
// These helpers are intentionally minimal and not intended for production
// usage.
package testutil
