package codec

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-jsonrpc/message"
)

func TestJSONCodecKeepsHTML(t *testing.T) {
	data, err := JSONCodec{}.Encode(map[string]string{"q": "<a & b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"q":"<a & b>"}`, string(data))

	data, err = EncodeRequest(1, "echo", []any{"x<y"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"params":["x<y"]`)
}

func TestEncodeRequestRoundTrip(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	params := []any{"hello", uint64(42), true, []int{1, 2}, point{X: 1, Y: 2}, nil}

	data, err := EncodeRequest(5, "concat", params)
	require.NoError(t, err)

	var req message.ServerRequest
	require.NoError(t, json.Unmarshal(data, &req))
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, "5", string(req.ID))
	assert.Equal(t, "concat", req.Method)

	var got []json.RawMessage
	require.NoError(t, json.Unmarshal(req.Params, &got))
	require.Len(t, got, len(params))
	for i, p := range params {
		want, err := json.Marshal(p)
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got[i]), "param %d", i)
	}
}

func TestEncodeRequestZeroParams(t *testing.T) {
	for _, params := range [][]any{nil, {}} {
		data, err := EncodeRequest(1, "nullary", params)
		require.NoError(t, err)
		assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"nullary","params":[]}`, string(data))
	}
}

func TestEncodeRequestSerializeFailure(t *testing.T) {
	for name, p := range map[string]any{
		"channel": make(chan int),
		"func":    func() {},
		"nan":     math.NaN(),
	} {
		_, err := EncodeRequest(1, "m", []any{"ok", p})
		assert.ErrorIs(t, err, message.ErrSerialize, name)
	}
}

func TestDecodeResponseSuccess(t *testing.T) {
	var out string
	err := DecodeResponse([]byte(`{"jsonrpc":"2.0","id":3,"result":"fizz"}`), 3, &out)
	require.NoError(t, err)
	assert.Equal(t, "fizz", out)

	// nil target only validates
	require.NoError(t, DecodeResponse([]byte(`{"jsonrpc":"2.0","id":3,"result":null}`), 3, nil))
}

func TestDecodeResponseFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"empty", ``, message.ErrInvalidJSON},
		{"garbage", `this is not json`, message.ErrInvalidJSON},
		{"truncated", `{"jsonrpc":"2.0","id":1,`, message.ErrInvalidJSON},
		{"array", `[{"jsonrpc":"2.0","id":1,"result":1}]`, message.ErrNotObject},
		{"string", `"2.0"`, message.ErrNotObject},
		{"missing version", `{"id":1,"result":1}`, message.ErrVersion},
		{"numeric version", `{"jsonrpc":2.0,"id":1,"result":1}`, message.ErrVersion},
		{"old version", `{"jsonrpc":"1.0","id":1,"result":1}`, message.ErrVersion},
		{"wrong id", `{"jsonrpc":"2.0","id":2,"result":1}`, message.ErrIDMismatch},
		{"string id", `{"jsonrpc":"2.0","id":"1","result":1}`, message.ErrIDMismatch},
		{"null id", `{"jsonrpc":"2.0","id":null,"result":1}`, message.ErrIDMismatch},
		{"missing id", `{"jsonrpc":"2.0","result":1}`, message.ErrIDMismatch},
		{"no result", `{"jsonrpc":"2.0","id":1}`, message.ErrNoResult},
		{"wrong type", `{"jsonrpc":"2.0","id":1,"result":{"a":1}}`, message.ErrResultType},
		{"null error", `{"jsonrpc":"2.0","id":1,"error":null,"result":1}`, message.ErrMalformedError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out int
			err := DecodeResponse([]byte(tc.body), 1, &out)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, message.KindResponse, message.KindOf(err))
		})
	}
}

func TestDecodeResponseNullResult(t *testing.T) {
	body := []byte(`{"jsonrpc":"2.0","id":1,"result":null}`)

	var n int
	err := DecodeResponse(body, 1, &n)
	assert.ErrorIs(t, err, message.ErrResultType)
	assert.Equal(t, message.KindResponse, message.KindOf(err))

	var s string
	assert.ErrorIs(t, DecodeResponse(body, 1, &s), message.ErrResultType)

	var u uint64
	assert.ErrorIs(t, DecodeResponse(body, 1, &u), message.ErrResultType)

	p := new(int)
	require.NoError(t, DecodeResponse(body, 1, &p))
	assert.Nil(t, p)

	var raw json.RawMessage
	require.NoError(t, DecodeResponse(body, 1, &raw))
	assert.Equal(t, "null", string(raw))

	var m map[string]int
	require.NoError(t, DecodeResponse(body, 1, &m))
	var v any
	require.NoError(t, DecodeResponse(body, 1, &v))
	assert.Nil(t, v)
}

func TestDecodeResponseInvalidUTF8(t *testing.T) {
	body := []byte("{\"jsonrpc\":\"2.0\",\"id\":1,\"result\":\"\xff\xfe\"}")

	var out string
	err := DecodeResponse(body, 1, &out)
	assert.ErrorIs(t, err, message.ErrInvalidJSON)
	assert.Empty(t, out)
}

// A missing version must be reported even when the id and the error member are broken too.
func TestDecodeResponseValidationOrder(t *testing.T) {
	err := DecodeResponse([]byte(`{"id":99,"error":{"code":-32600,"message":"x"},"result":1}`), 1, nil)
	assert.ErrorIs(t, err, message.ErrVersion)

	err = DecodeResponse([]byte(`{"jsonrpc":"2.0","id":99,"error":{"code":-32600,"message":"x"}}`), 1, nil)
	assert.ErrorIs(t, err, message.ErrIDMismatch)
}

func TestDecodeResponseErrorPrecedence(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"result":"ok","error":{"code":-32601,"message":"gone"}}`

	var out string
	err := DecodeResponse([]byte(body), 1, &out)
	require.ErrorIs(t, err, message.ErrRemote)
	assert.Empty(t, out)

	var remote *message.ErrorObject
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, message.CodeMethodNotFound, remote.Code)
	assert.Equal(t, "gone", remote.Message)
}

func TestSameID(t *testing.T) {
	cases := []struct {
		raw  string
		id   uint64
		want bool
	}{
		{`1`, 1, true},
		{` 1 `, 1, true},
		{`1.0`, 1, true},
		{`1e0`, 1, true},
		{`100E-2`, 1, true},
		{`18446744073709551615`, math.MaxUint64, true},
		{`1.5`, 1, false},
		{`-1`, 1, false},
		{`2`, 1, false},
		{`"1"`, 1, false},
		{`null`, 1, false},
		{`true`, 1, false},
		{`1e999999999`, 1, false},
		{`18446744073709551616`, 0, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SameID(json.RawMessage(tc.raw), tc.id), "raw %s id %d", tc.raw, tc.id)
	}
}

func TestTranslateError(t *testing.T) {
	err := TranslateError(json.RawMessage(`{"code":-32600,"message":"This was an invalid request","data":[1,2,3]}`))
	require.ErrorIs(t, err, message.ErrRemote)

	var e *message.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, message.CodeInvalidRequest, e.Remote.Code)
	assert.True(t, e.Remote.Code.IsWellKnown())
	assert.Equal(t, "This was an invalid request", e.Remote.Message)
	assert.JSONEq(t, `[1,2,3]`, string(e.Remote.Data))
}

func TestTranslateErrorOpaqueCodeWithoutData(t *testing.T) {
	obj, err := DecodeErrorObject(json.RawMessage(`{"code":4001,"message":"user rejected"}`))
	require.NoError(t, err)
	assert.Equal(t, message.ErrorCode(4001), obj.Code)
	assert.False(t, obj.Code.IsWellKnown())
	assert.Nil(t, obj.Data)
}

func TestTranslateErrorMalformed(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{`"boom"`, message.ErrMalformedError},
		{`[1]`, message.ErrMalformedError},
		{`{"message":"no code"}`, message.ErrMalformedCode},
		{`{"code":"-32600","message":"string code"}`, message.ErrMalformedCode},
		{`{"code":-32600.5,"message":"fractional code"}`, message.ErrMalformedCode},
		{`{"code":null,"message":"null code"}`, message.ErrMalformedCode},
		{`{"code":-32600}`, message.ErrMalformedMessage},
		{`{"code":-32600,"message":17}`, message.ErrMalformedMessage},
		{`{"code":-32600,"message":null}`, message.ErrMalformedMessage},
	}

	for _, tc := range cases {
		err := TranslateError(json.RawMessage(tc.raw))
		assert.ErrorIs(t, err, tc.want, tc.raw)
		assert.NotErrorIs(t, err, message.ErrRemote, tc.raw)
	}
}
