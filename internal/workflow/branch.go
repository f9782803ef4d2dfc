package workflow

import (
	"context"
	"fmt"
)

// Branch is one sequential chain of tasks run alongside its siblings.
type Branch struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// BranchError reports the first branch that failed.
type BranchError struct {
	Branch string
	Index  int
	Err    error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("branch %s failed: %v", e.Branch, e.Err)
}

func (e *BranchError) Unwrap() error {
	return e.Err
}

type branchOutcome struct {
	index int
	value any
	err   error
}

// RunParallel starts every branch at once and returns their results in
// declaration order once all succeed. The first failure is returned without
// waiting for the others; their in-flight calls finish on their own and the
// results are dropped. ctx is passed to the branches as is, so a failing
// branch never cancels its siblings.
func RunParallel(ctx context.Context, branches []Branch) ([]any, error) {
	outcomes := make(chan branchOutcome, len(branches))

	for i, b := range branches {
		go func(index int, b Branch) {
			defer func() {
				if r := recover(); r != nil {
					outcomes <- branchOutcome{index: index, err: fmt.Errorf("branch %s panicked: %v", b.Name, r)}
				}
			}()
			value, err := b.Run(ctx)
			outcomes <- branchOutcome{index: index, value: value, err: err}
		}(i, b)
	}

	results := make([]any, len(branches))
	for received := 0; received < len(branches); received++ {
		select {
		case o := <-outcomes:
			if o.err != nil {
				return nil, &BranchError{Branch: branches[o.index].Name, Index: o.index, Err: o.err}
			}
			results[o.index] = o.value
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return results, nil
}
