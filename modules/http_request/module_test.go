package http_request

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/testutil/steptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "extforge", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"extensions":["rest"]}`))
	}))
	defer server.Close()

	m := &Module{Client: server.Client()}
	values := cty.ObjectVal(map[string]cty.Value{
		"url":     cty.StringVal(server.URL + "/catalog"),
		"method":  cty.StringVal("post"),
		"headers": cty.ObjectVal(map[string]cty.Value{"User-Agent": cty.StringVal("extforge")}),
	})
	res, err := steptest.Run(t, m.Fetch, values, []buildstep.ItemType{{Name: "catalog"}})
	require.NoError(t, err)

	got := steptest.Values(res, "catalog")
	require.Len(t, got, 1)
	assert.Equal(t, cty.NumberIntVal(200), got[0].GetAttr("status_code"))
	assert.Equal(t, `{"extensions":["rest"]}`, got[0].GetAttr("body").AsString())
}

func TestFetch_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()
	m := &Module{Client: server.Client()}

	testCases := []struct {
		name    string
		values  cty.Value
		errText string
	}{
		{name: "missing url", values: cty.EmptyObjectVal, errText: "values.url is required"},
		{
			name:    "bad timeout",
			values:  cty.ObjectVal(map[string]cty.Value{"url": cty.StringVal(server.URL), "timeout": cty.StringVal("soon")}),
			errText: "values.timeout",
		},
		{
			name:    "error status",
			values:  cty.ObjectVal(map[string]cty.Value{"url": cty.StringVal(server.URL)}),
			errText: "unexpected status 404 Not Found",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := steptest.Run(t, m.Fetch, tc.values, []buildstep.ItemType{{Name: "catalog"}})
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.errText)
			assert.Empty(t, res.ItemsOf("catalog"))
		})
	}
}
