package engine

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	promptPlaceholder   = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)\}`)
	templatePlaceholder = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)
	transformCall       = regexp.MustCompile(`^([a-z_]+)(?:\(\s*'([^']*)'\s*\))?$`)
)

// expandPrompt substitutes {name} / {fk.column} placeholders with the current
// row's generated values. A missing variable is an error; validation should
// have rejected the schema, so reaching it here means a field evaluated out
// of order.
func expandPrompt(template string, rowCtx map[string]any) (string, error) {
	var missing string
	expanded := promptPlaceholder.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := rowCtx[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return fmt.Sprintf("%v", value)
	})
	if missing != "" {
		return "", fmt.Errorf("placeholder {%s} has no generated value", missing)
	}
	return expanded, nil
}

// expandTemplate substitutes {{ name }} placeholders, applying any
// "| transform" pipes left to right.
func expandTemplate(template string, rowCtx map[string]any) (string, error) {
	var firstErr error
	expanded := templatePlaceholder.ReplaceAllStringFunc(template, func(match string) string {
		inner := strings.TrimSpace(match[2 : len(match)-2])
		parts := strings.Split(inner, "|")
		name := strings.TrimSpace(parts[0])

		value, ok := rowCtx[name]
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("placeholder {{ %s }} has no generated value", name)
			}
			return match
		}

		text := fmt.Sprintf("%v", value)
		for _, pipe := range parts[1:] {
			transformed, err := applyTransform(strings.TrimSpace(pipe), text)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return match
			}
			text = transformed
		}
		return text
	})
	if firstErr != nil {
		return "", firstErr
	}
	return expanded, nil
}

// applyTransform runs one named transform, e.g. "slugify" or "slugify('.')".
func applyTransform(call, value string) (string, error) {
	m := transformCall.FindStringSubmatch(call)
	if m == nil {
		return "", fmt.Errorf("malformed transform %q", call)
	}
	name, arg := m[1], m[2]

	switch name {
	case "slugify":
		sep := "-"
		if arg != "" {
			sep = arg
		}
		return slugify(value, sep), nil
	case "upper":
		return strings.ToUpper(value), nil
	case "lower":
		return strings.ToLower(value), nil
	case "trim":
		return strings.TrimSpace(value), nil
	}
	return "", fmt.Errorf("unknown transform %q", name)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases and collapses every non-alphanumeric run into sep.
func slugify(value, sep string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(value), sep)
	return strings.Trim(slug, sep)
}
