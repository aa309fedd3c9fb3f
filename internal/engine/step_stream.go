package engine

import (
	"context"
	"fmt"
	"strings"
)

// FoldFunctionCall consumes a streamed model reply and folds its fragments
// into one function call. Arguments are concatenated in arrival order and
// the first non-empty name wins. A stream error aborts the fold.
func FoldFunctionCall(ctx context.Context, fragCh <-chan Fragment, errCh <-chan error) (FunctionCall, error) {
	var call FunctionCall
	var args strings.Builder

	for fragCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return FunctionCall{}, fmt.Errorf("model stream cancelled: %w", ctx.Err())
		case frag, ok := <-fragCh:
			if !ok {
				fragCh = nil
				continue
			}
			if call.Name == "" {
				call.Name = frag.Name
			}
			args.WriteString(frag.Arguments)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return FunctionCall{}, fmt.Errorf("model stream failed: %w", err)
			}
			// Received nil - successful completion, keep draining fragments
			errCh = nil
		}
	}

	call.Arguments = args.String()
	return call, nil
}
