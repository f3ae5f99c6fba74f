package filters

// Compiler turns a source blob into an executable Filter. The host picks
// the implementation (an embedded scripting engine, dynamic library
// loading, or a table of pre-registered native filters); the core never
// inspects the compiled object beyond the Filter contract.
//
// Compile failures must be returned as error, never panic: the Loader logs
// them as a *gwcontext.ConfigError and keeps serving the previous instance,
// if any, for the same path.
type Compiler interface {
	Compile(sourceBytes []byte, filename string) (Filter, error)
}
