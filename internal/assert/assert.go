// Package assert holds invariant checks that panic when violated. They guard
// values the program generates itself, never user input.
package assert

import (
	"fmt"
)

// Length panics unless value has exactly expected bytes
func Length(value string, expected int, what string) {
	if len(value) != expected {
		panic(fmt.Sprintf("assert.Length %s: expected %d actual %d", what, expected, len(value)))
	}
}

// NotEmpty panics when value is empty
func NotEmpty(value, what string) {
	if value == "" {
		panic(fmt.Sprintf("assert.NotEmpty %s: empty", what))
	}
}
