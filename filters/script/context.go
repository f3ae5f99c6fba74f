package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/edgerun/gatewayd/gwcontext"
)

// newContextTable builds the Lua table a filter script receives as its
// single "ctx" argument, generalizing the teacher's luaContext
// __index/__newindex proxy pattern from the two request/response phases it
// covered to the full well-known key set of the RequestContext: routing
// target, response fields, debug flags, and a freeform state bag.
func newContextTable(L *lua.LState, ctx *gwcontext.RequestContext) *lua.LTable {
	lc := &luaContext{ctx}
	t := L.NewTable()

	req := proxyTable(L, lc.getRequestField, lc.setRequestField)
	t.RawSetString("request", req)

	reqHdr := proxyTable(L, lc.getRequestHeader, lc.setRequestHeader)
	req.RawSetString("header", reqHdr)

	route := proxyTable(L, lc.getRouteField, lc.setRouteField)
	t.RawSetString("route", route)

	resp := proxyTable(L, lc.getResponseField, lc.setResponseField)
	t.RawSetString("response", resp)

	respHdr := L.NewTable()
	L.SetFuncs(respHdr, map[string]lua.LGFunction{
		"add": lc.addResponseHeader,
	})
	resp.RawSetString("header", respHdr)

	state := proxyTable(L, lc.getState, lc.setState)
	t.RawSetString("state", state)

	debugT := L.NewTable()
	L.SetFuncs(debugT, map[string]lua.LGFunction{
		"routing":  lc.debugRouting,
		"add_line": lc.addRoutingDebug,
	})
	t.RawSetString("debug", debugT)

	return t
}

func proxyTable(L *lua.LState, get, set lua.LGFunction) *lua.LTable {
	t := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(get))
	mt.RawSetString("__newindex", L.NewFunction(set))
	L.SetMetatable(t, mt)
	return t
}

type luaContext struct {
	ctx *gwcontext.RequestContext
}

func (c *luaContext) getRequestField(L *lua.LState) int {
	key := L.ToString(2)
	r := c.ctx.Request
	var ret lua.LValue = lua.LNil
	if r != nil {
		switch key {
		case "method":
			ret = lua.LString(r.Method)
		case "url":
			ret = lua.LString(r.URL.String())
		case "path":
			ret = lua.LString(r.URL.Path)
		case "remote_addr":
			ret = lua.LString(r.RemoteAddr)
		case "content_length":
			ret = lua.LNumber(r.ContentLength)
		case "proto":
			ret = lua.LString(r.Proto)
		case "host":
			ret = lua.LString(r.Host)
		}
	}
	L.Push(ret)
	return 1
}

func (c *luaContext) setRequestField(L *lua.LState) int {
	key := L.ToString(2)
	val := L.Get(3)
	if c.ctx.Request == nil {
		return 0
	}
	switch key {
	case "path":
		c.ctx.Request.URL.Path = lua.LVAsString(val)
	case "host":
		c.ctx.Request.Host = lua.LVAsString(val)
	}
	return 0
}

func (c *luaContext) getRequestHeader(L *lua.LState) int {
	name := L.ToString(2)
	ret := lua.LNil
	if c.ctx.Request != nil {
		if v := c.ctx.Request.Header.Get(name); v != "" {
			ret = lua.LString(v)
		}
	}
	L.Push(ret)
	return 1
}

func (c *luaContext) setRequestHeader(L *lua.LState) int {
	name := L.ToString(2)
	val := L.Get(3)
	if c.ctx.Request == nil {
		return 0
	}
	if val == lua.LNil {
		c.ctx.Request.Header.Del(name)
		return 0
	}
	c.ctx.Request.Header.Set(name, lua.LVAsString(val))
	return 0
}

func (c *luaContext) getRouteField(L *lua.LState) int {
	key := L.ToString(2)
	var ret lua.LValue = lua.LNil
	switch key {
	case "host":
		if c.ctx.RouteHost != nil {
			ret = lua.LString(*c.ctx.RouteHost)
		}
	case "vip":
		ret = lua.LString(c.ctx.RouteVIP)
	case "route":
		ret = lua.LString(c.ctx.Route)
	case "request_uri":
		ret = lua.LString(c.ctx.RequestURI)
	case "send_gateway_response":
		ret = lua.LBool(c.ctx.SendGatewayResponse)
	}
	L.Push(ret)
	return 1
}

func (c *luaContext) setRouteField(L *lua.LState) int {
	key := L.ToString(2)
	val := L.Get(3)
	switch key {
	case "host":
		s := lua.LVAsString(val)
		c.ctx.RouteHost = &s
	case "vip":
		c.ctx.RouteVIP = lua.LVAsString(val)
	case "route":
		c.ctx.Route = lua.LVAsString(val)
	case "request_uri":
		c.ctx.RequestURI = lua.LVAsString(val)
	case "send_gateway_response":
		c.ctx.SendGatewayResponse = lua.LVAsBool(val)
	}
	return 0
}

func (c *luaContext) getResponseField(L *lua.LState) int {
	key := L.ToString(2)
	var ret lua.LValue = lua.LNil
	switch key {
	case "body":
		ret = lua.LString(string(c.ctx.ResponseBody))
	case "status_code":
		ret = lua.LNumber(c.ctx.ResponseStatusCode)
	}
	L.Push(ret)
	return 1
}

func (c *luaContext) setResponseField(L *lua.LState) int {
	key := L.ToString(2)
	val := L.Get(3)
	switch key {
	case "body":
		c.ctx.ResponseBody = []byte(lua.LVAsString(val))
	case "status_code":
		if n, ok := val.(lua.LNumber); ok {
			c.ctx.ResponseStatusCode = int(n)
		}
	}
	return 0
}

func (c *luaContext) addResponseHeader(L *lua.LState) int {
	name := L.CheckString(1)
	value := L.CheckString(2)
	c.ctx.ResponseHeaders = append(c.ctx.ResponseHeaders, gwcontext.HeaderPair{Name: name, Value: value})
	return 0
}

func (c *luaContext) getState(L *lua.LState) int {
	key := L.ToString(2)
	v, ok := c.ctx.Get(key)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	switch tv := v.(type) {
	case string:
		L.Push(lua.LString(tv))
	case bool:
		L.Push(lua.LBool(tv))
	case int:
		L.Push(lua.LNumber(tv))
	case float64:
		L.Push(lua.LNumber(tv))
	default:
		L.Push(lua.LNil)
	}
	return 1
}

func (c *luaContext) setState(L *lua.LState) int {
	key := L.ToString(2)
	val := L.Get(3)
	switch v := val.(type) {
	case lua.LString:
		c.ctx.Set(key, string(v))
	case lua.LBool:
		c.ctx.Set(key, bool(v))
	case lua.LNumber:
		c.ctx.Set(key, float64(v))
	default:
		c.ctx.Set(key, nil)
	}
	return 0
}

func (c *luaContext) debugRouting(L *lua.LState) int {
	L.Push(lua.LBool(c.ctx.DebugRouting))
	return 1
}

func (c *luaContext) addRoutingDebug(L *lua.LState) int {
	line := L.CheckString(1)
	if c.ctx.DebugRouting {
		c.ctx.AddRoutingDebug(line)
	}
	return 0
}
