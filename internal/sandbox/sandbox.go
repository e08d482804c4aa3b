// Package sandbox evaluates the generation dashboard script in an isolated
// JavaScript runtime and returns the dashboard globals as a JSON document.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/grid-status-etl/internal/domain"
)

// epilogue serializes the globals the dashboard script is expected to define.
const epilogue = "JSON.stringify({dataFechaAcualizado, dataFuelCost, dataByFuel, dataMetrics, dataLoadPerSite});"

var (
	errTimeout  = errors.New("evaluation timed out")
	errCanceled = errors.New("evaluation canceled")
)

// Evaluator runs untrusted dashboard scripts. Each call gets a fresh runtime
// with no host bindings, so nothing leaks between evaluations.
type Evaluator struct {
	timeout time.Duration
	clock   clockwork.Clock
}

// NewEvaluator creates an Evaluator that interrupts scripts running longer
// than timeout on the given clock. A zero timeout disables the limit.
func NewEvaluator(timeout time.Duration, clock clockwork.Clock) *Evaluator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Evaluator{timeout: timeout, clock: clock}
}

// Evaluate runs script followed by the serialization epilogue and returns the
// resulting JSON text.
func (e *Evaluator) Evaluate(ctx context.Context, script string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrEvaluation, err)
	}

	src := Prepare(script)
	vm := goja.New()

	stop := context.AfterFunc(ctx, func() { vm.Interrupt(errCanceled) })
	defer stop()

	if e.timeout > 0 {
		timer := e.clock.AfterFunc(e.timeout, func() { vm.Interrupt(errTimeout) })
		defer timer.Stop()
	}

	v, err := vm.RunString(src)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrEvaluation, describe(err))
	}

	s, ok := v.Export().(string)
	if !ok {
		return "", fmt.Errorf("%w: completion value is %s, not a string", domain.ErrEvaluation, v.String())
	}
	return s, nil
}

// Prepare strips newlines and tabs from the upstream script and appends the
// serialization epilogue on its own line, so a trailing line comment in the
// script ends before the epilogue.
func Prepare(script string) string {
	cleaned := strings.NewReplacer("\n", "", "\t", "").Replace(script)
	return cleaned + "\n;" + epilogue
}

func describe(err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause.Error()
		}
		return "interrupted"
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return exc.Error()
	}
	return err.Error()
}
