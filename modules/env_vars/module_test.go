package env_vars

import (
	"testing"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/testutil/steptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestOnRunEnvVars(t *testing.T) {
	t.Setenv("EXTFORGE_TEST_ONE", "1")
	t.Setenv("EXTFORGE_TEST_TWO", "2")
	t.Setenv("OTHER_EXTFORGE_TEST", "x")

	values := cty.ObjectVal(map[string]cty.Value{"prefix": cty.StringVal("EXTFORGE_TEST_")})
	res, err := steptest.Run(t, OnRunEnvVars, values, []buildstep.ItemType{{Name: "env"}})
	require.NoError(t, err)

	got := steptest.Values(res, "env")
	require.Len(t, got, 1)
	assert.Equal(t, map[string]cty.Value{
		"EXTFORGE_TEST_ONE": cty.StringVal("1"),
		"EXTFORGE_TEST_TWO": cty.StringVal("2"),
	}, got[0].AsValueMap())
}

func TestOnRunEnvVars_Names(t *testing.T) {
	t.Setenv("EXTFORGE_TEST_ONE", "1")

	values := cty.ObjectVal(map[string]cty.Value{
		"names": cty.TupleVal([]cty.Value{cty.StringVal("EXTFORGE_TEST_ONE"), cty.StringVal("EXTFORGE_TEST_UNSET")}),
	})
	res, err := steptest.Run(t, OnRunEnvVars, values, []buildstep.ItemType{{Name: "env"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]cty.Value{"EXTFORGE_TEST_ONE": cty.StringVal("1")}, steptest.Values(res, "env")[0].AsValueMap())

	values = cty.ObjectVal(map[string]cty.Value{"names": cty.EmptyTupleVal, "prefix": cty.StringVal("NOPE_")})
	res, err = steptest.Run(t, OnRunEnvVars, values, []buildstep.ItemType{{Name: "env"}})
	require.NoError(t, err)
	assert.True(t, cty.MapValEmpty(cty.String).RawEquals(steptest.Values(res, "env")[0]))
}
