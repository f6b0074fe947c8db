// Package runner drives conversational turns.
//
// A turn moves through Idle, AwaitingFirstEvent, Consuming and Terminal:
//
//  1. wait for the session's turn slot (turns of one session run in call order)
//  2. append the user message
//  3. pull events from the engine one at a time
//  4. stop at the first final or escalated event
//
// Every turn yields exactly one human-readable string. Final answers are
// appended to the session; escalations are returned as a marked warning and
// an exhausted or cancelled sequence yields a fixed fallback text. Errors are
// never surfaced for turn outcomes.
//
// Each turn is recorded as an OpenTelemetry span named "runner.turn".
package runner
