package logos

import (
	"net/http"
	"net/url"

	"github.com/IntellionInc/logos/dto"
	"github.com/IntellionInc/logos/envelope"
)

// Request is the inbound data a controller works on.
type Request struct {
	HTTP    *http.Request
	Body    any
	Params  map[string]string
	Query   url.Values
	Headers http.Header

	// User is set by authentication protocols.
	User any
}

// NewRequest wraps an HTTP request.  body is the decoded body, params
// are the path variables.
func NewRequest(r *http.Request, body any, params map[string]string) *Request {
	req := &Request{
		HTTP:   r,
		Body:   body,
		Params: params,
	}
	if r != nil {
		req.Query = r.URL.Query()
		req.Headers = r.Header
	}
	return req
}

// Parts flattens the request into the records a dto.Set validates.
// Repeated query values and headers become []any; single ones stay
// strings.
func (r *Request) Parts() map[string]map[string]any {
	parts := map[string]map[string]any{
		dto.Params:  {},
		dto.Query:   flatten(r.Query),
		dto.Headers: flatten(r.Headers),
	}
	for k, v := range r.Params {
		parts[dto.Params][k] = v
	}
	if body, ok := r.Body.(map[string]any); ok {
		parts[dto.Body] = body
	}
	return parts
}

func flatten(values map[string][]string) map[string]any {
	flat := make(map[string]any, len(values))
	for k, v := range values {
		switch len(v) {
		case 0:
		case 1:
			flat[k] = v[0]
		default:
			list := make([]any, len(v))
			for i, s := range v {
				list[i] = s
			}
			flat[k] = list
		}
	}
	return flat
}

// Responder is the transport side of a controller.
type Responder interface {
	Status(code int)
	Send(payload any) error
}

// Payload is the response body every controller sends.
type Payload struct {
	Status int            `json:"status" yaml:"status"`
	Meta   map[string]any `json:"meta" yaml:"meta"`
	Data   any            `json:"data" yaml:"data"`
	Error  any            `json:"error" yaml:"error"`
	Stack  string         `json:"stack,omitempty" yaml:"stack,omitempty"`
}

var _ Responder = (*envelope.Response)(nil)
