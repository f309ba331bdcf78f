package conserver

import (
	"strconv"
	"time"
)

// StageOptions is the configuration handed to a link or storage. Values are treated as immutable: Merge and
// Clone always return new maps so a module's defaults can never be changed by one invocation and leak into
// the next.
type StageOptions map[string]any

// Clone returns a deep copy of the options. Nested maps and slices are copied, scalar values are shared.
func (o StageOptions) Clone() StageOptions {
	if o == nil {
		return StageOptions{}
	}

	out := make(StageOptions, len(o))
	for k, v := range o {
		out[k] = cloneValue(v)
	}

	return out
}

// Merge returns a new set of options holding o overlaid with overrides. Nested maps are merged key by key,
// every other value in overrides replaces the value in o.
func (o StageOptions) Merge(overrides StageOptions) StageOptions {
	out := o.Clone()
	for k, v := range overrides {
		base, okBase := toMap(out[k])
		over, okOver := toMap(v)
		if okBase && okOver {
			out[k] = map[string]any(StageOptions(base).Merge(over))
			continue
		}

		out[k] = cloneValue(v)
	}

	return out
}

func (o StageOptions) Str(key, fallback string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return fallback
	}

	switch t := v.(type) {
	case string:
		return t
	case int, int64, float64, bool:
		return toString(t)
	}

	return fallback
}

func (o StageOptions) Int(key string, fallback int) int {
	v, ok := o[key]
	if !ok {
		return fallback
	}

	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return fallback
		}

		return n
	}

	return fallback
}

func (o StageOptions) Bool(key string, fallback bool) bool {
	v, ok := o[key]
	if !ok {
		return fallback
	}

	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return fallback
		}

		return b
	}

	return fallback
}

// Duration reads a duration either as a Go duration string ("5s") or as a number of seconds.
func (o StageOptions) Duration(key string, fallback time.Duration) time.Duration {
	v, ok := o[key]
	if !ok {
		return fallback
	}

	switch t := v.(type) {
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			return fallback
		}

		return d
	case int:
		return time.Duration(t) * time.Second
	case int64:
		return time.Duration(t) * time.Second
	case float64:
		return time.Duration(t * float64(time.Second))
	}

	return fallback
}

func (o StageOptions) Strings(key string) []string {
	v, ok := o[key]
	if !ok {
		return nil
	}

	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}

		return out
	}

	return nil
}

// Map returns the nested options under key. The returned value is a copy.
func (o StageOptions) Map(key string) StageOptions {
	m, ok := toMap(o[key])
	if !ok {
		return StageOptions{}
	}

	return StageOptions(m).Clone()
}

func toMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case StageOptions:
		return t, true
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = val
		}

		return m, true
	}

	return nil, false
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(StageOptions(t).Clone())
	case StageOptions:
		return map[string]any(t.Clone())
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, val := range t {
			m[k] = val
		}

		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}

		return s
	case []string:
		return append([]string(nil), t...)
	}

	return v
}

func toString(v any) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}

	return ""
}
