package s3

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/testutil/steptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// fakeS3 serves the path-style bucket and object calls the handler makes.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodHead && key == "":
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && key == "":
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[bucket+"/"+key] = string(body)
		w.Header().Set("ETag", `"0123abcd"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string]string{}}
	server := httptest.NewServer(fake)
	defer server.Close()

	values := cty.ObjectVal(map[string]cty.Value{
		"endpoint":   cty.StringVal(strings.TrimPrefix(server.URL, "http://")),
		"access_key": cty.StringVal("extforge"),
		"secret_key": cty.StringVal("extforge123"),
		"bucket":     cty.StringVal("build-items"),
	})
	res, err := steptest.Run(t, Upload, values, []buildstep.ItemType{{Name: "uploaded"}}, steptest.Input{
		Type:   "feature",
		Multi:  true,
		Values: []cty.Value{cty.StringVal("rest"), cty.StringVal("cdi")},
	})
	require.NoError(t, err)

	assert.True(t, fake.buckets["build-items"], "missing bucket is created")
	body, ok := fake.objects["build-items/"+steptest.SubjectID+".json"]
	require.True(t, ok)
	assert.Contains(t, body, `{"feature":["rest","cdi"]}`)

	got := steptest.Values(res, "uploaded")
	require.Len(t, got, 1)
	assert.Equal(t, "build-items", got[0].GetAttr("bucket").AsString())
	assert.Equal(t, "subject.json", got[0].GetAttr("key").AsString())
	assert.Equal(t, "0123abcd", got[0].GetAttr("etag").AsString())
}

func TestDecodeInput(t *testing.T) {
	full := map[string]cty.Value{
		"endpoint":   cty.StringVal("minio:9000"),
		"access_key": cty.StringVal("a"),
		"secret_key": cty.StringVal("s"),
		"bucket":     cty.StringVal("b"),
		"key":        cty.StringVal("reports/app.json"),
		"use_ssl":    cty.True,
	}
	in, err := decodeInput(cty.ObjectVal(full))
	require.NoError(t, err)
	assert.Equal(t, &Input{
		Endpoint: "minio:9000", Region: "us-east-1", AccessKey: "a", SecretKey: "s",
		Bucket: "b", Key: "reports/app.json", UseSSL: true,
	}, in)

	testCases := []struct {
		drop    string
		errText string
	}{
		{drop: "endpoint", errText: "s3 endpoint is required"},
		{drop: "secret_key", errText: "s3 access key and secret key are required"},
		{drop: "bucket", errText: "s3 bucket is required"},
	}
	for _, tc := range testCases {
		t.Run(tc.drop, func(t *testing.T) {
			attrs := make(map[string]cty.Value, len(full))
			for k, v := range full {
				if k != tc.drop {
					attrs[k] = v
				}
			}
			_, err := decodeInput(cty.ObjectVal(attrs))
			assert.EqualError(t, err, tc.errText)
		})
	}
}
