package script

import (
	"time"

	log "github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/edgerun/gatewayd/filters/script/base64"
)

// openLibs loads the subset of the standard gopher-lua library a filter
// script is allowed to see. Filters run inside the gateway process with no
// sandboxing beyond this allowlist, so os/io are deliberately left out:
// a filter script has no business touching the local filesystem or
// spawning processes.
func openLibs(L *lua.LState) {
	for _, pair := range [][2]interface{}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		name := pair[0].(string)
		loader := lua.LGFunction(pair[1].(func(*lua.LState) int))
		L.Push(L.NewFunction(loader))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}

	L.SetGlobal("print", L.NewFunction(printToLog))
	L.SetGlobal("sleep", L.NewFunction(sleep))
	L.PreloadModule("base64", base64.Loader)
}

func printToLog(L *lua.LState) int {
	top := L.GetTop()
	args := make([]interface{}, 0, top)
	for i := 1; i <= top; i++ {
		args = append(args, L.ToStringMeta(L.Get(i)).String())
	}
	log.Info(args...)
	return 0
}

// sleep is exposed mainly for test filters; a filter that blocks the
// pipeline for any real amount of time is almost always a bug, but the
// gateway itself does not impose a timeout on filter execution (§5).
func sleep(L *lua.LState) int {
	time.Sleep(time.Duration(L.CheckInt64(1)) * time.Millisecond)
	return 0
}
