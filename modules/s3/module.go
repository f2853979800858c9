package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Input is decoded from the step's values.
type Input struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// Key is the object key; it defaults to "<step id>.json".
	Key    string
	UseSSL bool
}

func decodeInput(values cty.Value) (*Input, error) {
	in := &Input{Region: "us-east-1"}
	fields := []struct {
		name   string
		target any
	}{
		{"endpoint", &in.Endpoint},
		{"region", &in.Region},
		{"access_key", &in.AccessKey},
		{"secret_key", &in.SecretKey},
		{"bucket", &in.Bucket},
		{"key", &in.Key},
		{"use_ssl", &in.UseSSL},
	}
	for _, f := range fields {
		if _, err := handlers.DecodeAttr(values, f.name, f.target); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(in.Endpoint) == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if strings.TrimSpace(in.AccessKey) == "" || strings.TrimSpace(in.SecretKey) == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	if strings.TrimSpace(in.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	return in, nil
}

// Upload writes every consumed item as one JSON document, keyed by item
// type, to an S3-compatible bucket. The bucket is created when missing.
// It produces {bucket, key, etag, size} for every declared output type.
func Upload(ctx context.Context, sc *buildstep.StepContext, values cty.Value) error {
	logger := ctxlog.FromContext(ctx).With("action", "upload")
	in, err := decodeInput(values)
	if err != nil {
		return err
	}
	key := strings.TrimLeft(in.Key, "/")
	if key == "" {
		key = sc.StepID() + ".json"
	}

	doc, err := document(sc)
	if err != nil {
		return err
	}

	client, err := minio.New(in.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(in.AccessKey, in.SecretKey, ""),
		Secure: in.UseSSL,
		Region: in.Region,
	})
	if err != nil {
		return fmt.Errorf("init s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, in.Bucket)
	if err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if !exists {
		logger.Info("Creating bucket.", "bucket", in.Bucket)
		if err := client.MakeBucket(ctx, in.Bucket, minio.MakeBucketOptions{Region: in.Region}); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
	}

	logger.Info("Uploading build items to S3.", "bucket", in.Bucket, "key", key, "size", len(doc))
	info, err := client.PutObject(ctx, in.Bucket, key, bytes.NewReader(doc), int64(len(doc)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("s3 upload of %s/%s failed: %w", in.Bucket, key, err)
	}
	logger.Debug("Successfully uploaded build items.", "etag", info.ETag)

	v := cty.ObjectVal(map[string]cty.Value{
		"bucket": cty.StringVal(in.Bucket),
		"key":    cty.StringVal(key),
		"etag":   cty.StringVal(info.ETag),
		"size":   cty.NumberIntVal(int64(len(doc))),
	})
	for _, typ := range sc.ProducedTypes() {
		if err := sc.Produce(typ, v); err != nil {
			return err
		}
	}
	return nil
}

// document renders the consumed items as {"type": [value, ...]}.
func document(sc *buildstep.StepContext) ([]byte, error) {
	doc := make(map[string][]ctyjson.SimpleJSONValue)
	for _, typ := range sc.ConsumedTypes() {
		items := sc.ConsumeAll(typ)
		vals := make([]ctyjson.SimpleJSONValue, 0, len(items))
		for _, it := range items {
			vals = append(vals, ctyjson.SimpleJSONValue{Value: it.Value})
		}
		doc[typ] = vals
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode build items: %w", err)
	}
	return data, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *handlers.Handlers) {
	r.RegisterHandler("s3_upload", &handlers.RegisteredHandler{
		Description: "uploads consumed items as JSON to an S3-compatible bucket",
		Fn:          Upload,
	})
}
