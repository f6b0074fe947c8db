// Package core provides the foundational domain types shared by the runner,
// the reasoning engines and the session store:
//
//   - Message (an immutable conversational entry authored by the user or an agent)
//   - Event (the unit a reasoning engine yields: intermediate, final or escalated)
//   - Action (decision trace attached to intermediate events)
//   - Session (per-identity conversation history with FIFO turn sequencing)
//   - SessionStore (the lookup contract implemented by package session)
//
// Implementation concerns (persistence, orchestration, concrete engines) live
// in other packages; core only exposes small types and interfaces.
package core
