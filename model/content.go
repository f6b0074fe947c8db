package model

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentteam/core"
)

// EncodeFunctionResponse renders a function response payload as the JSON
// text providers expect in tool result messages.
func EncodeFunctionResponse(resp map[string]any) string {
	if resp == nil {
		return "{}"
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf("%v", resp)
	}

	return string(b)
}

// DecodeArguments parses serialized function call arguments. Empty input
// yields an empty map.
func DecodeArguments(args string) (map[string]any, error) {
	out := map[string]any{}
	if args == "" {
		return out, nil
	}

	if err := json.Unmarshal([]byte(args), &out); err != nil {
		return nil, fmt.Errorf("invalid function arguments: %w", err)
	}

	return out, nil
}

// EncodeArguments serializes function call arguments.
func EncodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}

	return string(b)
}

// LastUserText returns the text of the most recent user content.
func LastUserText(contents []core.Content) string {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role == core.ContentRoleUser {
			if t := contents[i].Text(); t != "" {
				return t
			}
		}
	}

	return ""
}
