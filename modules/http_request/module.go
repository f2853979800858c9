package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/extforge/internal/buildstep"
	"github.com/specialistvlad/extforge/internal/ctxlog"
	"github.com/specialistvlad/extforge/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

// DefaultTimeout bounds a request when the step sets no timeout.
const DefaultTimeout = 30 * time.Second

// Module implements the handlers.Module interface for this package. All
// steps share one client to reuse connections.
type Module struct {
	// Client overrides the shared client, mainly for tests.
	Client *http.Client
}

// Input is decoded from the step's values.
type Input struct {
	URL     string
	Method  string
	Headers map[string]string
	// Timeout is a Go duration string such as "10s".
	Timeout string
}

func decodeInput(values cty.Value) (*Input, error) {
	in := &Input{Method: http.MethodGet}
	ok, err := handlers.DecodeAttr(values, "url", &in.URL)
	if err != nil {
		return nil, err
	}
	if !ok || in.URL == "" {
		return nil, fmt.Errorf("values.url is required")
	}
	if _, err := handlers.DecodeAttr(values, "method", &in.Method); err != nil {
		return nil, err
	}
	in.Method = strings.ToUpper(in.Method)
	if _, err := handlers.DecodeAttr(values, "headers", &in.Headers); err != nil {
		return nil, err
	}
	if _, err := handlers.DecodeAttr(values, "timeout", &in.Timeout); err != nil {
		return nil, err
	}
	return in, nil
}

// Fetch performs one request and produces {status_code, body} for every
// declared output type. Responses with a status of 400 or above fail the
// step.
func (m *Module) Fetch(ctx context.Context, sc *buildstep.StepContext, values cty.Value) error {
	logger := ctxlog.FromContext(ctx)
	in, err := decodeInput(values)
	if err != nil {
		return err
	}

	timeout := DefaultTimeout
	if in.Timeout != "" {
		if timeout, err = time.ParseDuration(in.Timeout); err != nil {
			return fmt.Errorf("values.timeout: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, in.Method, in.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range in.Headers {
		req.Header.Set(k, v)
	}

	logger.Info("Making HTTP request.", "method", in.Method, "url", in.URL)
	resp, err := m.client().Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Debug("Received HTTP response.", "status", resp.Status, "bytes", len(body))
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: unexpected status %s", in.Method, in.URL, resp.Status)
	}

	v := cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":        cty.StringVal(string(body)),
	})
	for _, typ := range sc.ProducedTypes() {
		if err := sc.Produce(typ, v); err != nil {
			return err
		}
	}
	return nil
}

var sharedClient = &http.Client{}

func (m *Module) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return sharedClient
}

// Register registers the handler with the engine.
func (m *Module) Register(r *handlers.Handlers) {
	r.RegisterHandler("http_request", &handlers.RegisteredHandler{
		Description: "fetches a URL and produces the response",
		Fn:          m.Fetch,
	})
}
