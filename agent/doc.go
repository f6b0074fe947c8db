// Package agent describes the delegation tree: immutable Agent descriptors that
// carry a name, a declared responsibility, an instruction, owned tools and
// ordered children.
//
// Agents do not run anything themselves. Reasoning engines (package engine)
// read the tree to decide whether an utterance is handled by an agent's own
// tool, delegated to a child or declined.
//
// Tree invariants enforced by New:
//   - names are unique within a tree
//   - every agent has at most one parent
//   - tool names are unique per agent
//   - no cycles (children exist before their parent)
package agent
