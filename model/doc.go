// Package model defines the provider-agnostic abstractions for language
// models driving the model engine.
//
// A Model streams Responses over a channel pair; Collect drains one call
// into its final response. Requests and responses are built from
// core.Content so provider adapters (openai, anthropic, gemini) are the only
// places that know vendor SDK types.
//
// MockModel is a scripted implementation for tests and offline runs.
package model
