package fail

import (
	"testing"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/testutil/steptest"
	"github.com/stretchr/testify/assert"
	"github.com/zclconf/go-cty/cty"
)

func TestFail(t *testing.T) {
	_, err := steptest.Run(t, Fail, cty.ObjectVal(map[string]cty.Value{"message": cty.StringVal("disk full")}), nil)
	assert.ErrorIs(t, err, buildstep.ErrStepFailed)
	assert.ErrorContains(t, err, "disk full")

	_, err = steptest.Run(t, Fail, cty.NilVal, nil)
	assert.ErrorContains(t, err, "step failed")
}
