package weatherteam

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hupe1980/agentteam/core"
	"github.com/hupe1980/agentteam/engine"
	"github.com/hupe1980/agentteam/internal/textutil"
)

// ErrNoCity asks the user for the city when none can be found in the
// utterance or the conversation.
var ErrNoCity = errors.New("Which city would you like the weather for?")

// DeclineText is answered for utterances the team cannot service.
const DeclineText = "Sorry, I can only help with weather, greetings and farewells."

// Routing keywords, matched as whole words ignoring case and diacritics.
var (
	GreetingKeywords = []string{"hello", "hi", "hey", "xin chào", "chào", "good morning", "good afternoon", "good evening"}
	FarewellKeywords = []string{"bye", "goodbye", "tạm biệt", "see you", "good night"}
	WeatherKeywords  = []string{"weather", "thời tiết", "forecast", "temperature", "rain", "sunny"}
)

var (
	namePattern = regexp.MustCompile(`(?i)\b(?:my name is|i am|i'm|this is|tên tôi là|tôi là|mình là)\s+(\p{L}[\p{L}'-]*)`)
	cityPattern = regexp.MustCompile(`(?i)(?:\b(?:in|at|for|what about|how about)|(?:^|\s)(?:ở|tại))\s+(\p{L}[\p{L}' -]*)`)
)

// Words that end a city phrase captured by cityPattern.
var cityStopWords = map[string]struct{}{
	"today": {}, "tomorrow": {}, "now": {}, "please": {}, "right": {}, "this": {}, "currently": {},
	"hom": {}, "nay": {},
	"the": {}, "my": {}, "your": {}, "our": {}, "here": {}, "there": {}, "it": {}, "that": {},
}

// Rules returns the keyword routing of the team for engine.RuleEngine.
//
// The root claims weather questions and utterances naming a known city, the
// children claim greetings and farewells. Because children are consulted
// first, "Hello, what's the weather?" is answered by greeting_agent.
func Rules(src WeatherSource) map[string]engine.Rule {
	if src == nil {
		src = DefaultSource()
	}

	return map[string]engine.Rule{
		GreetingAgentName: {
			Keywords: GreetingKeywords,
			Tool:     SayHelloToolName,
			Args: func(utterance string, _ []core.Message) (map[string]any, error) {
				if name := ExtractName(utterance); name != "" {
					return map[string]any{"name": name}, nil
				}
				return map[string]any{}, nil
			},
		},
		FarewellAgentName: {
			Keywords: FarewellKeywords,
			Tool:     SayGoodbyeToolName,
		},
		RootAgentName: {
			Keywords: WeatherKeywords,
			Match: func(utterance string) bool {
				return findKnownCity(utterance, src.Cities()) != ""
			},
			Tool: GetWeatherToolName,
			Args: func(utterance string, history []core.Message) (map[string]any, error) {
				city := ExtractCity(utterance, history, src.Cities())
				if city == "" {
					return nil, ErrNoCity
				}
				return map[string]any{"city": city}, nil
			},
		},
	}
}

// NewRuleEngine creates a rule engine routing for the team over src.
func NewRuleEngine(src WeatherSource, optFns ...func(o *engine.RuleEngineOptions)) *engine.RuleEngine {
	rules := Rules(src)

	return engine.NewRuleEngine(append([]func(o *engine.RuleEngineOptions){
		func(o *engine.RuleEngineOptions) {
			o.Rules = rules
			o.DeclineText = DeclineText
		},
	}, optFns...)...)
}

// ExtractName returns the capitalised name introduced in the utterance
// ("I'm Alice" -> "Alice"), or "".
func ExtractName(utterance string) string {
	m := namePattern.FindStringSubmatch(utterance)
	if m == nil {
		return ""
	}

	name := m[1]
	if r, _ := utf8.DecodeRuneInString(name); !unicode.IsUpper(r) {
		return ""
	}

	return name
}

// ExtractCity finds the city a weather question is about:
//
//  1. the earliest known city named in the utterance
//  2. a phrase after "in", "for", "what about" and similar, in any case
//  3. the last city named by an earlier user message
//
// Earlier messages are only consulted when the utterance names no city, so
// "weather in paris" yields "paris" even after a question about Tokyo. It
// returns "" when nothing applies.
func ExtractCity(utterance string, history []core.Message, known []string) string {
	if city := cityIn(utterance, known); city != "" {
		return city
	}

	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role != core.RoleUser || m.Text == utterance {
			continue
		}

		if city := cityIn(m.Text, known); city != "" {
			return city
		}
	}

	return ""
}

func cityIn(text string, known []string) string {
	if city := findKnownCity(text, known); city != "" {
		return city
	}

	m := cityPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	var words []string

	for _, w := range strings.Fields(m[1]) {
		if _, stop := cityStopWords[textutil.Fold(w)]; stop {
			break
		}
		words = append(words, w)
	}

	return strings.Trim(strings.Join(words, " "), " '-")
}

// findKnownCity returns the known name that occurs earliest in text.
func findKnownCity(text string, known []string) string {
	words := textutil.Tokens(text)

	best, bestAt := "", -1

	for _, name := range known {
		at := textutil.IndexPhrase(words, textutil.Tokens(name))
		if at < 0 {
			// "Ha Noi" vs "Hanoi": compare the compacted forms too.
			at = indexCompact(words, textutil.Compact(name))
		}

		if at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = name, at
		}
	}

	return best
}

// indexCompact finds a run of up to three words whose concatenation is key.
func indexCompact(words []string, key string) int {
	for i := range words {
		var sb strings.Builder

		for j := i; j < len(words) && j < i+3; j++ {
			sb.WriteString(words[j])
			if sb.String() == key {
				return i
			}
		}
	}

	return -1
}
