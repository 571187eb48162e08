package envelope

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Body is a []byte with the request body pre-read.
type Body []byte

// ReadBody reads the input body from an http.Request.  The request
// body is replaced so that it can be read again.
func ReadBody(r *http.Request) (Body, error) {
	if r.Body == nil {
		return nil, nil
	}
	// nolint:errcheck
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	return Body(body), errors.Wrap(err, "read request body")
}

// Decoder is the signature for decoders: take bytes and
// a pointer to something and deserialize it.
type Decoder func([]byte, interface{}) error

// BodyDecoder decodes request bodies by Content-Type.
type BodyDecoder struct {
	decoders           map[string]Decoder
	defaultContentType string
}

// DecoderOpt are functional arguments for NewBodyDecoder.
type DecoderOpt func(*BodyDecoder)

// WithDecoder maps conent types (eg "application/json") to
// decode functions (eg json.Unmarshal).  If a Content-Type header
// is used in the requet, then the value of that header will be
// used to pick a decoder.
func WithDecoder(contentType string, decoder Decoder) DecoderOpt {
	return func(d *BodyDecoder) {
		d.decoders[contentType] = decoder
	}
}

// WithDefaultDecoding specifies which decoder to use when
// no "Content-Type" header was sent.
func WithDefaultDecoding(contentType string) DecoderOpt {
	return func(d *BodyDecoder) {
		d.defaultContentType = contentType
	}
}

// NewBodyDecoder returns a decoder that knows JSON and YAML.  JSON is
// used when the request has no Content-Type.
func NewBodyDecoder(opts ...DecoderOpt) *BodyDecoder {
	d := &BodyDecoder{
		decoders: map[string]Decoder{
			ContentTypeJSON:      json.Unmarshal,
			ContentTypeYAML:      yaml.Unmarshal,
			"application/x-yaml": yaml.Unmarshal,
			"text/yaml":          yaml.Unmarshal,
		},
		defaultContentType: ContentTypeJSON,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads and decodes the body of r.  An empty body decodes to
// nil.  Failures are annotated with BadRequest.
func (d *BodyDecoder) Decode(r *http.Request) (interface{}, error) {
	body, err := ReadBody(r)
	if err != nil {
		return nil, BadRequest(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		ct = d.defaultContentType
	} else if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	decoder, ok := d.decoders[strings.ToLower(ct)]
	if !ok {
		return nil, ReturnCode(errors.Errorf("No body decoder for content type %s", ct), http.StatusUnsupportedMediaType)
	}
	var model interface{}
	if err := decoder(body, &model); err != nil {
		return nil, BadRequest(errors.Wrapf(err, "Could not decode %s body", ct))
	}
	return model, nil
}
