package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/cogwright/pkg/graph"
	"github.com/chazu/cogwright/pkg/paramschema"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	graph  *graph.DesignGraph
	params []paramschema.Param
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds timeout or ctx ends first. It uses a generation
// counter to discard stale results from previous evaluations.
//
// On timeout, the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ctx context.Context,
	ch <-chan evalResult,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (evalResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		// Check if this result is still relevant (not stale).
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			// A newer evaluation was started; discard this result.
			return evalResult{}, fmt.Errorf("evaluation superseded by newer request")
		}
		if res.err != nil {
			return evalResult{}, res.err
		}
		return res, nil

	case <-timer.C:
		return evalResult{}, fmt.Errorf("evaluation timed out after %s", timeout)

	case <-ctx.Done():
		return evalResult{}, fmt.Errorf("evaluation canceled: %w", ctx.Err())
	}
}
