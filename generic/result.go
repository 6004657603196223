package generic

import "fmt"

// Unwrap_ panics if err is not nil, for calls that cannot fail in practice.
func Unwrap_(err error) {
	if err != nil {
		panic(fmt.Errorf("tried to Unwrap_() an Err: %w", err))
	}
}
