package envelope_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/IntellionInc/logos/envelope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSON(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	res := envelope.NewResponse(rec, req)
	res.Status(201)
	assert.Equal(t, 201, res.StatusCode())
	require.NoError(t, res.Send(map[string]interface{}{"status": 201, "data": "ok"}))
	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":201,"data":"ok"}`, rec.Body.String())
	assert.Error(t, res.Send("again"), "only one send")
}

func TestSendNegotiatesYAML(t *testing.T) {
	t.Parallel()
	cases := []struct {
		accept string
		want   string
	}{
		{"", "application/json"},
		{"*/*", "application/json"},
		{"application/yaml", "application/yaml"},
		{"text/html, application/x-yaml;q=0.9", "application/x-yaml"},
		{"application/json;q=0.2, text/yaml", "text/yaml"},
		{"application/yaml;q=0, application/json", "application/json"},
		{"image/png", "application/json"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.accept, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/x", nil)
			if tc.accept != "" {
				req.Header.Set("Accept", tc.accept)
			}
			res := envelope.NewResponse(rec, req)
			require.NoError(t, res.Send(map[string]interface{}{"a": 1}))
			assert.Equal(t, tc.want, rec.Header().Get("Content-Type"))
			if strings.Contains(tc.want, "yaml") {
				assert.Equal(t, "a: 1\n", rec.Body.String())
			}
		})
	}
}

func TestSendMarshalFailure(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	res := envelope.NewResponse(rec, req, envelope.WithErrorEncoder(func(_ envelope.BasicLogger, err error) []byte {
		return []byte("cannot encode: " + err.Error())
	}))
	res.Writer().Header().Set("X-Kept", "no")
	err := res.Send(map[string]interface{}{"c": make(chan int)})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "cannot encode: "))
	assert.Equal(t, "", rec.Header().Get("X-Kept"), "reset dropped the header")
}

func TestCustomEncoder(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	res := envelope.NewResponse(rec, req,
		envelope.WithEncoder("text/plain", func(v interface{}) ([]byte, error) {
			return []byte(fmt.Sprint(v)), nil
		}),
		envelope.WithDefaultContentType("text/plain"))
	require.NoError(t, res.Send("hello"))
	assert.Equal(t, "hello", rec.Body.String())
}

func TestDecode(t *testing.T) {
	t.Parallel()
	d := envelope.NewBodyDecoder()
	cases := []struct {
		name        string
		contentType string
		body        string
		want        interface{}
		code        int
	}{
		{"json", "application/json; charset=utf-8", `{"a":1,"b":["x"]}`, map[string]interface{}{"a": float64(1), "b": []interface{}{"x"}}, 0},
		{"default json", "", `{"a":"b"}`, map[string]interface{}{"a": "b"}, 0},
		{"yaml", "application/yaml", "a: b\nn: 2\n", map[string]interface{}{"a": "b", "n": 2}, 0},
		{"empty", "application/json", "  ", nil, 0},
		{"broken json", "application/json", `{"a":`, nil, 400},
		{"unknown type", "application/msgpack", `xx`, nil, 415},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("POST", "/x", strings.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			got, err := d.Decode(req)
			if tc.code != 0 {
				require.Error(t, err)
				assert.Equal(t, tc.code, envelope.GetReturnCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReadBodyRewinds(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest("POST", "/x", strings.NewReader("abc"))
	body, err := envelope.ReadBody(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))
	again, err := envelope.ReadBody(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
