package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// RenderError reports a template/variable contract violation. It is only
// surfaced in strict mode.
type RenderError struct {
	Detail string
}

func (e *RenderError) Error() string {
	return "prompt render error: " + e.Detail
}

var placeholderRe = regexp.MustCompile(`<[A-Z0-9_]+>`)

// Render substitutes `<NAME>` placeholders with the given variables.
// Non-string values are serialized as indented, Unicode-preserving JSON and
// wrapped in a fenced json block. In strict mode rendering fails when a
// supplied variable has no placeholder in the template, or when an
// uppercase-bracket token survives substitution.
func Render(template string, variables map[string]interface{}, strict bool) (string, error) {
	rendered := template

	for key, value := range variables {
		placeholder := fmt.Sprintf("<%s>", key)

		if strict && !strings.Contains(rendered, placeholder) {
			return "", &RenderError{Detail: fmt.Sprintf("placeholder %s not found in template", placeholder)}
		}

		text, ok := value.(string)
		if !ok {
			pretty, err := toPrettyJSON(value)
			if err != nil {
				return "", &RenderError{Detail: fmt.Sprintf("cannot serialize variable %s: %v", key, err)}
			}
			text = wrapJSONBlock(pretty)
		}

		rendered = strings.ReplaceAll(rendered, placeholder, text)
	}

	if strict {
		if leftovers := placeholderRe.FindAllString(rendered, -1); len(leftovers) > 0 {
			return "", &RenderError{Detail: fmt.Sprintf("unreplaced placeholders: %s", strings.Join(leftovers, ", "))}
		}
	}

	return rendered, nil
}

func toPrettyJSON(value interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func wrapJSONBlock(pretty string) string {
	return "```json\n" + pretty + "\n```"
}

// Load reads a template from dir, falling back to the built-in default when
// dir is empty or the file is absent.
func Load(dir, name string) (string, error) {
	if dir != "" {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read template %s: %v", path, err)
		}
	}

	tpl, ok := defaults[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}
	return tpl, nil
}
