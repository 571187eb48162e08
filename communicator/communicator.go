// Package communicator calls other HTTP services.
//
// A Communicator is created with a base URL, a timeout, default headers
// and an error handler.  Its Get, Post, Put, Patch and Delete methods
// return the decoded response body on success.  Any failure, including
// a non-2xx status, is passed to the error handler and the handler's
// result is returned instead.
package communicator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/IntellionInc/logos/envelope"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes the remote service.
type Config struct {
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// ErrorHandler turns a failed call into the call's result.
type ErrorHandler func(ctx context.Context, err error) (any, error)

// Rethrow is the default ErrorHandler: the error is returned as is.
func Rethrow(_ context.Context, err error) (any, error) {
	return nil, err
}

// ResponseError is a response with a status outside [200,300).  Body
// is the decoded body, or the raw text when it does not decode.
type ResponseError struct {
	Method string
	URL    string
	Status int
	Body   any
}

func (err *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", err.Method, err.URL, err.Status, http.StatusText(err.Status))
}

// ErrorName is used by error dictionaries.
func (err *ResponseError) ErrorName() string { return "ResponseError" }

// Communicator is safe for concurrent use.
type Communicator struct {
	cfg     Config
	base    *url.URL
	client  *http.Client
	onError ErrorHandler
	log     envelope.BasicLogger
}

// Opt configures a Communicator.
type Opt func(*Communicator)

// WithClient replaces the HTTP client.  Config.Timeout is then ignored.
func WithClient(client *http.Client) Opt {
	return func(c *Communicator) {
		c.client = client
	}
}

// WithLogger sets where failed calls are reported.
func WithLogger(log envelope.BasicLogger) Opt {
	return func(c *Communicator) {
		c.log = log
	}
}

// New creates a Communicator.  A nil onError returns errors unchanged.
func New(cfg Config, onError ErrorHandler, opts ...Opt) (*Communicator, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "base url %q", cfg.BaseURL)
	}
	if onError == nil {
		onError = Rethrow
	}
	c := &Communicator{
		cfg:     cfg,
		base:    base,
		client:  &http.Client{Timeout: cfg.Timeout},
		onError: onError,
		log:     envelope.NoLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get sends params as the query string.
func (c *Communicator) Get(ctx context.Context, path string, params map[string]any) (any, error) {
	return c.Do(ctx, http.MethodGet, path, Query(params), nil)
}

// Delete sends params as the query string.
func (c *Communicator) Delete(ctx context.Context, path string, params map[string]any) (any, error) {
	return c.Do(ctx, http.MethodDelete, path, Query(params), nil)
}

// Post sends body as JSON.
func (c *Communicator) Post(ctx context.Context, path string, body any) (any, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put sends body as JSON.
func (c *Communicator) Put(ctx context.Context, path string, body any) (any, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Patch sends body as JSON.
func (c *Communicator) Patch(ctx context.Context, path string, body any) (any, error) {
	return c.Do(ctx, http.MethodPatch, path, nil, body)
}

// Query converts params to url.Values.  Slices become repeated keys.
func Query(params map[string]any) url.Values {
	if len(params) == 0 {
		return nil
	}
	q := url.Values{}
	for k, v := range params {
		switch list := v.(type) {
		case []string:
			q[k] = append(q[k], list...)
		case []any:
			for _, e := range list {
				q.Add(k, fmt.Sprint(e))
			}
		default:
			q.Set(k, fmt.Sprint(v))
		}
	}
	return q
}

// Do makes one call.  A nil body sends no body.
func (c *Communicator) Do(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	data, err := c.do(ctx, method, path, query, body)
	if err != nil {
		c.log.Warn("Outbound call failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return c.onError(ctx, err)
	}
	return data, nil
}

func (c *Communicator) do(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	target, err := c.resolve(path, query)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		enc, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(enc)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	keys := make([]string, 0, len(c.cfg.Headers))
	for k := range c.cfg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		req.Header.Set(k, c.cfg.Headers[k])
	}
	if body != nil {
		req.Header.Set("Content-Type", envelope.ContentTypeJSON)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", envelope.ContentTypeJSON)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, target)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read response of %s %s", method, target)
	}
	decoded, err := decode(resp.Header.Get("Content-Type"), raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if err != nil {
			decoded = string(raw)
		}
		return nil, errors.WithStack(&ResponseError{
			Method: method,
			URL:    target,
			Status: resp.StatusCode,
			Body:   decoded,
		})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode response of %s %s", method, target)
	}
	return decoded, nil
}

func (c *Communicator) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrapf(err, "path %q", path)
	}
	u := ref
	if !ref.IsAbs() && c.base.String() != "" {
		base := *c.base
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		ref.Path = strings.TrimPrefix(ref.Path, "/")
		u = base.ResolveReference(ref)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q[k] = append(q[k], v...)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func decode(contentType string, raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = ""
	}
	var v any
	switch {
	case mt == envelope.ContentTypeJSON || strings.HasSuffix(mt, "+json"):
		err = json.Unmarshal(raw, &v)
	case strings.Contains(mt, "yaml"):
		err = yaml.Unmarshal(raw, &v)
	default:
		return string(raw), nil
	}
	return v, err
}
