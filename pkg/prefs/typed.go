package prefs

import "encoding/json"

// Float returns name as a float64, or def when absent or not numeric.
func Float(s Store, name string, def float64) float64 {
	if v, ok := toFloat(s.Get(name, def)); ok {
		return v
	}
	return def
}

// Int returns name as an int, or def when absent or not numeric.
func Int(s Store, name string, def int) int {
	if v, ok := toInt(s.Get(name, def)); ok {
		return v
	}
	return def
}

// String returns name as a string, or def when absent or not a string.
func String(s Store, name string, def string) string {
	if v, ok := s.Get(name, def).(string); ok {
		return v
	}
	return def
}

// Bool returns name as a bool, or def when absent.
// Integers are accepted with 0 meaning false.
func Bool(s Store, name string, def bool) bool {
	switch v := s.Get(name, def).(type) {
	case bool:
		return v
	default:
		if i, ok := toInt(v); ok {
			return i != 0
		}
	}
	return def
}

// Ensure stores def under name unless a value already exists and
// returns whether the stored value now differs from def.
func Ensure(s Store, name string, def any) (bool, error) {
	if !s.HasKey(name) {
		return false, s.Set(name, def)
	}
	cur := s.Get(name, def)
	if f, ok := toFloat(def); ok {
		if g, ok := toFloat(cur); ok {
			return f != g, nil
		}
	}
	return cur != def, nil
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case float32:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
