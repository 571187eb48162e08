package envelope

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Marshaller turns a payload into bytes.
type Marshaller func(interface{}) ([]byte, error)

// Content types with built-in encoders.
const (
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/yaml"
)

type encoderOptions struct {
	encoders           map[string]Marshaller
	defaultContentType string
	errorEncoder       func(BasicLogger, error) []byte
	log                BasicLogger
}

// ResponseOpt are functional arguments for NewResponse.
type ResponseOpt func(*encoderOptions)

// WithEncoder maps a content type to a marshaller.  The Accept header
// of the request picks among them.
func WithEncoder(contentType string, m Marshaller) ResponseOpt {
	return func(o *encoderOptions) {
		o.encoders[contentType] = m
	}
}

// WithDefaultContentType picks the encoder used when the request
// accepts anything or names nothing we know.
func WithDefaultContentType(contentType string) ResponseOpt {
	return func(o *encoderOptions) {
		o.defaultContentType = contentType
	}
}

// WithErrorEncoder specifies how to encode errors that happen while
// encoding the payload itself.  The default encoding is to simply send
// err.Error() as plain text.  Error encoding is not allowed to return
// error itself nor is it allowed to panic.
func WithErrorEncoder(errorEncoder func(BasicLogger, error) []byte) ResponseOpt {
	return func(o *encoderOptions) {
		o.errorEncoder = errorEncoder
	}
}

// WithLogger sets where encoding and write failures are reported.
func WithLogger(log BasicLogger) ResponseOpt {
	return func(o *encoderOptions) {
		o.log = log
	}
}

// Response is the transport half of a logos request.  It records a
// status and sends one encoded payload.
type Response struct {
	w      *DeferredWriter
	r      *http.Request
	o      encoderOptions
	status int
}

// NewResponse wraps w in a DeferredWriter.  JSON and YAML encoders are
// always available; JSON is the default.
func NewResponse(w http.ResponseWriter, r *http.Request, opts ...ResponseOpt) *Response {
	o := encoderOptions{
		encoders: map[string]Marshaller{
			ContentTypeJSON:      json.Marshal,
			ContentTypeYAML:      yaml.Marshal,
			"application/x-yaml": yaml.Marshal,
			"text/yaml":          yaml.Marshal,
		},
		defaultContentType: ContentTypeJSON,
		errorEncoder:       func(_ BasicLogger, err error) []byte { return []byte(err.Error()) },
		log:                NoLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Response{
		w:      NewDeferredWriter(w),
		r:      r,
		o:      o,
		status: http.StatusOK,
	}
}

// Status sets the status code that Send writes.
func (res *Response) Status(code int) {
	res.status = code
}

// StatusCode returns the status that Send writes.
func (res *Response) StatusCode() int { return res.status }

// Writer exposes the deferred writer, for setting headers.
func (res *Response) Writer() *DeferredWriter { return res.w }

// Send encodes payload with the negotiated encoder and flushes it.
// Send may be called once.
func (res *Response) Send(payload interface{}) error {
	if res.w.Done() {
		return errors.New("response already sent")
	}
	contentType := res.negotiate()
	enc, err := res.o.encoders[contentType](payload)
	if err != nil {
		res.w.Reset()
		res.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		res.w.WriteHeader(http.StatusInternalServerError)
		_, _ = res.w.Write(res.o.errorEncoder(res.o.log, err))
		res.o.log.Error("Cannot marshal response", res.fields(err))
		if ferr := res.w.Flush(); ferr != nil {
			res.o.log.Warn("Cannot write response", res.fields(ferr))
		}
		return errors.Wrapf(err, "marshal %s", contentType)
	}
	res.w.Header().Set("Content-Type", contentType)
	res.w.WriteHeader(res.status)
	_, _ = res.w.Write(enc)
	if err := res.w.Flush(); err != nil {
		res.o.log.Warn("Cannot write response", res.fields(err))
		return err
	}
	return nil
}

func (res *Response) fields(err error) map[string]interface{} {
	f := map[string]interface{}{
		"error": err.Error(),
	}
	if res.r != nil {
		f["method"] = res.r.Method
		f["uri"] = res.r.URL.String()
	}
	return f
}

type accepted struct {
	contentType string
	q           float64
}

// negotiate picks the encoder for the Accept header.  Quality values
// are honored; ties keep header order.
func (res *Response) negotiate() string {
	if _, ok := res.o.encoders[res.o.defaultContentType]; !ok {
		res.o.defaultContentType = ContentTypeJSON
	}
	if res.r == nil {
		return res.o.defaultContentType
	}
	header := res.r.Header.Get("Accept")
	if header == "" {
		return res.o.defaultContentType
	}
	var list []accepted
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		a := accepted{contentType: strings.ToLower(strings.TrimSpace(fields[0])), q: 1}
		for _, param := range fields[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
			if ok && strings.TrimSpace(k) == "q" {
				if q, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					a.q = q
				}
			}
		}
		if a.q > 0 {
			list = append(list, a)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].q > list[j].q })
	for _, a := range list {
		if a.contentType == "*/*" || a.contentType == "application/*" {
			return res.o.defaultContentType
		}
		if _, ok := res.o.encoders[a.contentType]; ok {
			return a.contentType
		}
	}
	return res.o.defaultContentType
}
