package config

import (
	"reflect"

	"k8s.io/utils/pointer"
)

// SetThen provides a utility to select the first value if set, otherwise defaults.
func SetThen[T any](value T, defaultValue T) T {
	if reflect.ValueOf(value).IsZero() {
		return defaultValue
	}
	return value
}

// BoolValue dereferences an optional YAML boolean, falling back to defaultValue when it
// was not set.
func BoolValue(value *bool, defaultValue bool) bool {
	return pointer.BoolDeref(value, defaultValue)
}
