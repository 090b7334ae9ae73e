package utils

import (
	"fmt"
	"log"
	"runtime/debug"
)

// GoSafe runs fn in a new goroutine and logs instead of crashing the process on panic.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered from panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// Recover converts a panic in the calling function into an error assigned to *errp.
func Recover(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("panic: %v", r)
	}
}

// ToPointer returns a pointer to v.
func ToPointer[T any](v T) *T {
	return &v
}
