// Package weatherteam assembles the demo team: a root weather agent that owns
// get_weather and delegates greetings and farewells to two specialised
// children.
//
// The team works with both engines. NewRuleEngine routes by keywords (the
// offline mode used in tests); any engine.ModelEngine can drive the same tree
// through the agents' instructions and transfer_to_agent.
package weatherteam
