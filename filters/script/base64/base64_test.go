package base64

import (
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	L.PreloadModule("base64", Loader)

	err := L.DoString(`
local base64 = require("base64")
encoded = base64.encode("hello world")
decoded = base64.decode(encoded)
`)
	require.NoError(t, err)

	assert.Equal(t, "aGVsbG8gd29ybGQ=", L.GetGlobal("encoded").String())
	assert.Equal(t, "hello world", L.GetGlobal("decoded").String())
}

func TestEncodeDecodeURLRoundTrip(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	L.PreloadModule("base64", Loader)

	err := L.DoString(`
local base64 = require("base64")
encoded = base64.encode_url("flow>id?")
decoded = base64.decode_url(encoded)
`)
	require.NoError(t, err)

	assert.NotContains(t, L.GetGlobal("encoded").String(), "/")
	assert.Equal(t, "flow>id?", L.GetGlobal("decoded").String())
}

func TestDecodeInvalidReturnsError(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	L.PreloadModule("base64", Loader)

	err := L.DoString(`
local base64 = require("base64")
value, errmsg = base64.decode("not-valid-base64!!")
`)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, L.GetGlobal("value"))
	assert.NotEqual(t, "", L.GetGlobal("errmsg").String())
}
