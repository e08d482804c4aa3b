package sandbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/grid-status-etl/internal/domain"
)

const dashboardScript = `var dataFechaAcualizado = "03/10/2024 09:00:15 AM";
var dataFuelCost = [{"Place":"Aguirre","Value":12}];
var dataByFuel = [{"Fuel":"Bunker C","Value":600}];
var dataMetrics = [{"Index":"1","Desc":"Reserva","value":"N/A"}];
var dataLoadPerSite = [{"Index":"7","Type":"Steam","Desc":"Aguirre","SiteTotal":450,
	"units":[{"Index":"1","Unit":"AG1","MW":225,"MVar":"10","Cost":1.5,"ParentId":"7"}]}];
`

func newTestEvaluator() *Evaluator {
	return NewEvaluator(10*time.Second, clockwork.NewRealClock())
}

func TestEvaluate_RoundTripsGlobals(t *testing.T) {
	out, err := newTestEvaluator().Evaluate(context.Background(), dashboardScript)
	require.NoError(t, err)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 5)
	assert.JSONEq(t, `"03/10/2024 09:00:15 AM"`, string(got["dataFechaAcualizado"]))
	assert.JSONEq(t, `[{"Place":"Aguirre","Value":12}]`, string(got["dataFuelCost"]))
	assert.JSONEq(t, `[{"Fuel":"Bunker C","Value":600}]`, string(got["dataByFuel"]))
	assert.JSONEq(t, `[{"Index":"1","Desc":"Reserva","value":"N/A"}]`, string(got["dataMetrics"]))

	snap, err := domain.ParseGeneration([]byte(out))
	require.NoError(t, err)
	require.Len(t, snap.LoadPerSite, 1)
	assert.Equal(t, 1, snap.UnitCount())
}

func TestEvaluate_MissingGlobal(t *testing.T) {
	script := `var dataFechaAcualizado = "x"; var dataFuelCost = []; var dataMetrics = []; var dataLoadPerSite = [];`

	_, err := newTestEvaluator().Evaluate(context.Background(), script)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEvaluation)
	assert.Contains(t, err.Error(), "dataByFuel")
}

func TestEvaluate_SyntaxError(t *testing.T) {
	_, err := newTestEvaluator().Evaluate(context.Background(), `var dataByFuel = [;`)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEvaluation)
}

func TestEvaluate_RuntimeException(t *testing.T) {
	_, err := newTestEvaluator().Evaluate(context.Background(), `throw new Error("upstream broke");`)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEvaluation)
	assert.Contains(t, err.Error(), "upstream broke")
}

func TestEvaluate_NoHostBindings(t *testing.T) {
	script := `var dataFechaAcualizado = [typeof require, typeof console, typeof process, typeof fetch];
var dataFuelCost = []; var dataByFuel = []; var dataMetrics = []; var dataLoadPerSite = [];`

	out, err := newTestEvaluator().Evaluate(context.Background(), script)
	require.NoError(t, err)

	var got struct {
		Types []string `json:"dataFechaAcualizado"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"undefined", "undefined", "undefined", "undefined"}, got.Types)
}

func TestEvaluate_FreshRuntimePerCall(t *testing.T) {
	e := newTestEvaluator()

	_, err := e.Evaluate(context.Background(), dashboardScript+`var leaked = 42;`)
	require.NoError(t, err)

	script := `var dataFechaAcualizado = typeof leaked;
var dataFuelCost = []; var dataByFuel = []; var dataMetrics = []; var dataLoadPerSite = [];`
	out, err := e.Evaluate(context.Background(), script)
	require.NoError(t, err)
	assert.Contains(t, out, `"dataFechaAcualizado":"undefined"`)

	// Globals from the first call must not satisfy the epilogue of a later one.
	_, err = e.Evaluate(context.Background(), `var unrelated = 1;`)
	assert.ErrorIs(t, err, domain.ErrEvaluation)
}

func TestEvaluate_Timeout(t *testing.T) {
	fake := clockwork.NewFakeClock()
	e := NewEvaluator(5*time.Second, fake)

	errc := make(chan error, 1)
	go func() {
		_, err := e.Evaluate(context.Background(), `while (true) {}`)
		errc <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	fake.Advance(5 * time.Second)

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEvaluation)
		assert.Contains(t, err.Error(), "timed out")
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation was not interrupted")
	}
}

func TestEvaluate_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := NewEvaluator(0, nil).Evaluate(ctx, `while (true) {}`)
		errc <- err
	}()
	cancel()

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEvaluation)
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation was not interrupted")
	}
}

func TestPrepare(t *testing.T) {
	got := Prepare("var a = 1;\n\tvar b = 2;\n")
	assert.Equal(t, "var a = 1;var b = 2;\n;"+epilogue, got)
}

func TestEvaluate_TrailingLineComment(t *testing.T) {
	script := dashboardScript + "//# sourceMappingURL=dataSource.js.map\n"

	out, err := newTestEvaluator().Evaluate(context.Background(), script)
	require.NoError(t, err)

	snap, err := domain.ParseGeneration([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.UnitCount())
}

func TestEvaluate_NonStringCompletion(t *testing.T) {
	script := `var dataFechaAcualizado = "x"; var dataFuelCost = []; var dataByFuel = [];
var dataMetrics = []; var dataLoadPerSite = []; JSON.stringify = function() { return 42; };`

	_, err := newTestEvaluator().Evaluate(context.Background(), script)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEvaluation)
	assert.Contains(t, err.Error(), "not a string")
}
