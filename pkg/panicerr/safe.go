// Package panicerr turns panics in background work into ordinary errors.
package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"

	"github.com/kazz187/collabspace/pkg/cerr"
)

// SafeContext wraps fn so that a panic is returned as an Internal error
// carrying the panicking goroutine's stack.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) (err error) {
		var catcher panics.Catcher
		catcher.Try(func() {
			err = fn(ctx)
		})
		if r := catcher.Recovered(); r != nil {
			e := cerr.NewError(cerr.Internal, "unexpected failure", r.AsError())
			e.Stack = string(r.Stack)
			return e
		}
		return err
	}
}
