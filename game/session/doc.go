// Package session provides in-memory session management for the crate
// pusher server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session cleanup and expiration
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive. IDs come from crypto/rand and are retried on collision.
//
// Lifecycle:
//
// Each session owns a game engine and, once a client holds a key, an
// intent queue with its repeat tasks. Delete and CleanupExpired close the
// session so no repeat task outlives it. Sessions live only in memory and
// are lost on restart.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", opts)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
//
//	// Drop sessions idle for more than an hour
//	removed := manager.CleanupExpired(time.Hour)
package session
