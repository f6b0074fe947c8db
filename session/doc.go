// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the Session struct) live in the core package so
// that the runner and the engines never depend on concrete storage.
//
// Only the in-memory backend exists; sessions last for the lifetime of the
// process.
package session
