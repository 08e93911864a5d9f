package util

import "fmt"

// Advisory is the outcome of a best-effort side effect. Callers may log it
// but must never let it change control flow.
type Advisory struct {
	Op  string
	Err error
}

// Succeeded reports whether the side effect went through.
func (a Advisory) Succeeded() bool {
	return a.Err == nil
}

func (a Advisory) String() string {
	if a.Err == nil {
		return a.Op + ": ok"
	}
	return fmt.Sprintf("%s: %v", a.Op, a.Err)
}

// Attempt runs fn and wraps its result as an Advisory.
func Attempt(op string, fn func() error) Advisory {
	return Advisory{Op: op, Err: fn()}
}
