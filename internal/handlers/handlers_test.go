package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type testModule struct {
	name string
	fn   Func
}

func (m testModule) Register(h *Handlers) {
	h.RegisterHandler(m.name, &RegisteredHandler{Fn: m.fn})
}

func nop(context.Context, *buildstep.StepContext, cty.Value) error { return nil }

func TestRegistry(t *testing.T) {
	h := New().Register(testModule{"b", nop}, testModule{"a", nop})

	assert.Equal(t, []string{"a", "b"}, h.Names())
	_, ok := h.Handler("a")
	assert.True(t, ok)
	_, ok = h.Handler("missing")
	assert.False(t, ok)

	assert.PanicsWithValue(t, "step handler with name 'a' already registered", func() {
		h.RegisterHandler("a", &RegisteredHandler{Fn: nop})
	})
	assert.Panics(t, func() { h.RegisterHandler("c", &RegisteredHandler{}) })
}

func TestRegistry_DoesNotLogToDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	New().Register(testModule{"quiet", nop})
	assert.Empty(t, buf.String())
}

func TestBind(t *testing.T) {
	var got cty.Value
	h := New().Register(testModule{"capture", func(_ context.Context, _ *buildstep.StepContext, values cty.Value) error {
		got = values
		return errors.New("captured")
	}})

	_, err := h.Bind("missing", cty.NilVal)
	assert.ErrorContains(t, err, `unknown step handler "missing", registered handlers: [capture]`)

	values := cty.ObjectVal(map[string]cty.Value{"k": cty.StringVal("v")})
	run, err := h.Bind("capture", values)
	require.NoError(t, err)

	g, err := buildstep.NewGraph(nil, []*buildstep.Step{{ID: "s", Run: run}})
	require.NoError(t, err)
	_, err = buildstep.NewExecutor(g).Run(ctxlog.Discard(context.Background()))
	assert.ErrorContains(t, err, "captured")
	assert.True(t, values.RawEquals(got))
}

func TestAttr(t *testing.T) {
	obj := cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("rest")})
	m := cty.MapVal(map[string]cty.Value{"name": cty.StringVal("cdi")})

	v, ok := Attr(obj, "name")
	require.True(t, ok)
	assert.Equal(t, "rest", v.AsString())

	v, ok = Attr(m, "name")
	require.True(t, ok)
	assert.Equal(t, "cdi", v.AsString())

	for _, values := range []cty.Value{obj, m, cty.NilVal, cty.NullVal(cty.DynamicPseudoType), cty.StringVal("x")} {
		_, ok := Attr(values, "missing")
		assert.False(t, ok)
	}
}

func TestDecodeAttr(t *testing.T) {
	values := cty.ObjectVal(map[string]cty.Value{
		"names": cty.TupleVal([]cty.Value{cty.StringVal("A"), cty.StringVal("B")}),
		"count": cty.NumberIntVal(3),
		"bad":   cty.ObjectVal(map[string]cty.Value{"x": cty.True}),
	})

	var names []string
	found, err := DecodeAttr(values, "names", &names)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"A", "B"}, names)

	var count string
	found, err = DecodeAttr(values, "count", &count)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "3", count, "numbers convert to strings")

	var absent string
	found, err = DecodeAttr(values, "absent", &absent)
	require.NoError(t, err)
	assert.False(t, found)

	var bad []string
	found, err = DecodeAttr(values, "bad", &bad)
	assert.True(t, found)
	assert.ErrorContains(t, err, "values.bad")
}
