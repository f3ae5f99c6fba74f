// Package base64 is a gopher-lua module giving filter scripts access to
// standard and URL-safe base64 encoding without shelling out or
// reimplementing it in Lua.
package base64

import (
	"encoding/base64"

	lua "github.com/yuin/gopher-lua"
)

func Loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"decode":     decode,
		"encode":     encode,
		"decode_url": decodeWith(base64.URLEncoding),
		"encode_url": encodeWith(base64.URLEncoding),
	})
	L.Push(mod)
	return 1
}

func encode(L *lua.LState) int {
	return encodeWith(base64.StdEncoding)(L)
}

func decode(L *lua.LState) int {
	return decodeWith(base64.StdEncoding)(L)
}

// encodeWith returns a Lua function encoding its single string argument
// with enc, e.g. the URL-safe alphabet for values that end up in a query
// parameter (a redirect target, a callback-wrapped error body link).
func encodeWith(enc *base64.Encoding) lua.LGFunction {
	return func(L *lua.LState) int {
		str := L.CheckString(1)
		L.Push(lua.LString(enc.EncodeToString([]byte(str))))
		return 1
	}
}

// decodeWith returns a Lua function decoding its single string argument
// with enc, returning (nil, errmsg) on malformed input instead of raising,
// so a script can fall back to treating the value as opaque.
func decodeWith(enc *base64.Encoding) lua.LGFunction {
	return func(L *lua.LState) int {
		str := L.CheckString(1)
		ret, err := enc.DecodeString(str)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LString(ret))
		return 1
	}
}
