package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"gopkg.in/yaml.v3"
)

var fenceRe = regexp.MustCompile("(?s)```([a-zA-Z]*)[ \t]*\r?\n(.*?)```")

// Decode extracts a T from raw model output. It takes the first fenced code
// block (or the whole text) and tries JSON, repaired JSON and the outermost
// bracketed span, then YAML. A block fenced as yaml is tried as YAML first.
func Decode[T any](raw string) (T, error) {
	var zero T
	body, lang := stripFence(raw)
	if body == "" {
		return zero, errors.New("empty response")
	}

	var errs []error
	tryYAML := func() (T, bool) {
		var v T
		err := yaml.Unmarshal([]byte(body), &v)
		if err == nil && !isZero(v) {
			return v, true
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("yaml: %w", err))
		}
		return v, false
	}

	if lang == "yaml" || lang == "yml" {
		if v, ok := tryYAML(); ok {
			return v, nil
		}
	}
	for _, candidate := range jsonCandidates(body) {
		v, err := decodeJSON[T](candidate)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	if lang == "" {
		if v, ok := tryYAML(); ok {
			return v, nil
		}
	}

	return zero, fmt.Errorf("could not decode %T from response: %w (raw: %s)", zero, errors.Join(errs...), truncate(raw, 200))
}

func stripFence(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[2]), strings.ToLower(m[1])
	}
	return raw, ""
}

func jsonCandidates(body string) []string {
	candidates := []string{body}
	if start, end := strings.IndexAny(body, "{["), strings.LastIndexAny(body, "}]"); start > 0 && end > start {
		candidates = append(candidates, body[start:end+1])
	}
	return candidates
}

func decodeJSON[T any](s string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(s), &v)
	if err == nil {
		return v, nil
	}
	repaired, repairErr := jsonrepair.JSONRepair(s)
	if repairErr != nil {
		return v, fmt.Errorf("json: %w", err)
	}
	var fixed T
	if err := json.Unmarshal([]byte(repaired), &fixed); err != nil {
		return v, fmt.Errorf("repaired json: %w", err)
	}
	return fixed, nil
}

// isZero reports whether v carries no data; prose parses as a YAML
// scalar and leaves structs empty.
func isZero[T any](v T) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return true
	}
	switch string(b) {
	case "null", "[]", `""`, "{}":
		return true
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return false
	}
	for _, field := range m {
		switch x := field.(type) {
		case nil:
		case string:
			if x != "" {
				return false
			}
		case []any:
			if len(x) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
