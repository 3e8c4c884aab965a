package llm

import "encoding/json"

// ExtractJSONObject finds the first balanced {...} span in text that parses
// as a JSON object. Model output is untrusted: anything that does not parse
// yields ok=false.
func ExtractJSONObject(text string) (map[string]interface{}, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := matchBrace(text, start)
		if end < 0 {
			continue
		}
		var out map[string]interface{}
		if err := json.Unmarshal([]byte(text[start:end+1]), &out); err == nil {
			return out, true
		}
	}
	return nil, false
}

// matchBrace returns the index of the brace closing text[start], honoring
// JSON strings and escapes, or -1 if the span never closes.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// StringListMap converts a decoded JSON object of string arrays, dropping
// anything with the wrong shape
func StringListMap(obj map[string]interface{}) map[string][]string {
	out := make(map[string][]string, len(obj))
	for k, v := range obj {
		list, ok := v.([]interface{})
		if !ok {
			continue
		}
		var items []string
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				items = append(items, s)
			}
		}
		if len(items) > 0 {
			out[k] = items
		}
	}
	return out
}
