// Package engine implements the reasoning engines that turn one user message
// into a stream of events for the runner.
//
// # Contract
//
// An Engine returns a lazy iter.Seq[core.Event]. Nothing runs until the
// consumer pulls; the sequence yields intermediate events (the decision
// trace) and at most one terminal event:
//
//	intermediate* (final | escalated)?
//
// Engines never write to the session. They see a read-only core.SessionView
// and leave persistence of the final answer to the runner.
//
// # Engines
//
// RuleEngine routes utterances with a Resolver: children are consulted before
// the agent's own tool, and unclaimed utterances get a polite decline. It is
// deterministic and needs no network access.
//
// ModelEngine drives a model.Model. It offers the active agent's tools plus
// transfer_to_agent (when the agent has children) and loops over
// model call, tool execution and tool results until the model answers with
// text, a step limit is hit or the turn is cancelled.
//
// # Decision trace
//
// Intermediate events carry a core.Action: transfer, tool_call, tool_result,
// decline or reasoning. Tests and the evaluation harness assert on these
// instead of parsing text.
//
// # Callbacks
//
// A CallbackManager hooks into agent entry, model calls, tool calls and
// escalation. Errors from before_agent and before_model escalate the turn; an
// error from before_tool replaces the tool result with a Failure.
package engine
