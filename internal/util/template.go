package util

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"text/template"
)

// RenderTemplate renders text as a text/template against state.
// This lives in internal to avoid committing to public API stability prematurely.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	// Create a new template with helper funcs
	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"default": func(defaultVal any, val any) any {
			if val == nil || val == "" {
				return defaultVal
			}
			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": func(s string) string {
			if len(s) == 0 {
				return s
			}
			return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
		},
		"join": func(sep string, items any) string {
			v := reflect.ValueOf(items)
			if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
				return fmt.Sprintf("%v", items)
			}
			strItems := make([]string, v.Len())
			for i := 0; i < v.Len(); i++ {
				strItems[i] = fmt.Sprintf("%v", v.Index(i).Interface())
			}
			return strings.Join(strItems, sep)
		},
	}).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", err
	}

	return buf.String(), nil
}
