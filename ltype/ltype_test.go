package ltype_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"os"
	"testing"
	"time"

	"github.com/IntellionInc/logos/ltype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptors(t *testing.T) {
	t.Parallel()
	now := time.Now()
	var nilTime *time.Time
	var nilBuffer *bytes.Buffer
	cases := []struct {
		name   string
		d      ltype.Descriptor
		accept []any
		reject []any
	}{
		{
			name:   "string",
			d:      ltype.String,
			accept: []any{"", "a"},
			reject: []any{nil, 1, true, []byte("a")},
		},
		{
			name:   "email",
			d:      ltype.Email,
			accept: []any{"a@b", "@"},
			reject: []any{nil, "ab", 7},
		},
		{
			name:   "number",
			d:      ltype.Number,
			accept: []any{0, 42, int8(-1), uint64(9), 1.5, float32(2), json.Number("12")},
			reject: []any{nil, "1", true, json.Number("x")},
		},
		{
			name:   "phone",
			d:      ltype.Phone,
			accept: []any{"+15551234567", "1234567"},
			reject: []any{"123", "555-1234", 5551234567, nil},
		},
		{
			name:   "boolean",
			d:      ltype.Boolean,
			accept: []any{true, false},
			reject: []any{"true", 1, nil},
		},
		{
			name:   "date",
			d:      ltype.Date,
			accept: []any{now, &now, "2021-03-04", "2021-03-04T05:06:07Z", "Mon, 02 Jan 2006 15:04:05 MST"},
			reject: []any{nil, nilTime, 1614816000000, 3.5, "not a date", ""},
		},
		{
			name:   "array",
			d:      ltype.Array,
			accept: []any{[]int{1}, []any{}, [2]string{"a", "b"}},
			reject: []any{nil, []byte("x"), "abc", map[string]any{}},
		},
		{
			name:   "buffer",
			d:      ltype.Buffer,
			accept: []any{[]byte("x"), json.RawMessage(`{}`), bytes.NewBufferString("x")},
			reject: []any{nil, nilBuffer, "x", []int{1}},
		},
		{
			name:   "file",
			d:      ltype.File,
			accept: []any{&multipart.FileHeader{Filename: "a.txt"}, os.Stdin},
			reject: []any{nil, "a.txt", (*os.File)(nil), (*multipart.FileHeader)(nil)},
		},
		{
			name:   "absent",
			d:      ltype.Absent,
			reject: []any{nil, "x", 0},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			for _, v := range tc.accept {
				assert.Truef(t, tc.d.HasSameTypeAs(v), "%s should accept %#v", tc.d.Name(), v)
			}
			for _, v := range tc.reject {
				assert.Falsef(t, tc.d.HasSameTypeAs(v), "%s should reject %#v", tc.d.Name(), v)
			}
		})
	}
}

func TestDefinitions(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a string", ltype.String.Definition())
	assert.Equal(t, "a string that contains an @ sign", ltype.Email.Definition())
	assert.Equal(t, "a number", ltype.Number.Definition())
	assert.Equal(t, "a phone number", ltype.Phone.Definition())
	assert.Equal(t, "a boolean", ltype.Boolean.Definition())
	assert.Equal(t, "a date instance", ltype.Date.Definition())
	assert.Equal(t, "an array", ltype.Array.Definition())
	assert.Equal(t, "a buffer", ltype.Buffer.Definition())
	assert.Equal(t, "a file", ltype.File.Definition())
	assert.Equal(t, "not defined", ltype.Absent.Definition())
}

func TestEnum(t *testing.T) {
	t.Parallel()
	colors := ltype.Enum("red", "green")
	assert.Equal(t, "a string from the following options: red, green", colors.Definition())
	assert.True(t, colors.HasSameTypeAs("red"))
	assert.False(t, colors.HasSameTypeAs("blue"))
	assert.False(t, colors.HasSameTypeAs(nil))
	assert.False(t, colors.HasSameTypeAs([]string{"red"}))

	levels := ltype.Enum(1, 2, 3)
	assert.Equal(t, "a number from the following options: 1, 2, 3", levels.Definition())
	assert.True(t, levels.HasSameTypeAs(2))
	assert.True(t, levels.HasSameTypeAs(float64(3)), "json numbers decode as float64")
	assert.False(t, levels.HasSameTypeAs("2"))

	flags := ltype.Enum(true)
	assert.Equal(t, "a boolean from the following options: true", flags.Definition())
	assert.True(t, flags.HasSameTypeAs(true))
	assert.False(t, flags.HasSameTypeAs(false))
}

func TestLookup(t *testing.T) {
	t.Parallel()
	d, ok := ltype.Lookup("Email")
	require.True(t, ok)
	assert.Same(t, ltype.Email, d)
	assert.True(t, d == ltype.Email, "descriptors compare by identity")
	assert.False(t, d == ltype.String)
	d, ok = ltype.Lookup("undefined")
	require.True(t, ok)
	assert.True(t, ltype.IsAbsent(d))
	_, ok = ltype.Lookup("uuid")
	assert.False(t, ok)
	assert.False(t, ltype.IsAbsent(ltype.String))
	assert.True(t, ltype.IsAbsent(nil))
	impostor := ltype.New("absent", "not defined", func(any) bool { return false })
	assert.False(t, ltype.IsAbsent(impostor), "only the Absent marker itself is absent")
	assert.False(t, impostor == ltype.Absent)
}

func TestPredicatesAreTotal(t *testing.T) {
	t.Parallel()
	weird := []any{nil, struct{}{}, make(chan int), func() {}, map[any]any{}, (*int)(nil), []map[string]any{nil}}
	all := []ltype.Descriptor{
		ltype.String, ltype.Email, ltype.Number, ltype.Phone, ltype.Boolean,
		ltype.Date, ltype.Array, ltype.Buffer, ltype.File, ltype.Absent,
		ltype.Enum([]int{1}, "x"),
	}
	for _, d := range all {
		for _, v := range weird {
			assert.NotPanics(t, func() {
				first := d.HasSameTypeAs(v)
				assert.Equal(t, first, d.HasSameTypeAs(v), "deterministic")
			})
		}
	}
}
