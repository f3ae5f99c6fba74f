package gwcontext

import "fmt"

// GatewayError is the gateway's canonical failure value. Filters raise it to
// signal a user-visible failure; the pipeline runner stores it on the
// RequestContext and routes the request to the ERROR stage.
type GatewayError struct {
	StatusCode int
	ErrorCause string
	Message    string
	Cause      error
}

func NewGatewayError(statusCode int, errorCause, message string) *GatewayError {
	return &GatewayError{StatusCode: statusCode, ErrorCause: errorCause, Message: message}
}

func WrapGatewayError(cause error, statusCode int, errorCause string) *GatewayError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &GatewayError{StatusCode: statusCode, ErrorCause: errorCause, Message: msg, Cause: cause}
}

func (e *GatewayError) Error() string {
	cause := e.ErrorCause
	if cause == "" {
		cause = "UNKNOWN"
	}
	return fmt.Sprintf("gateway error: %d %s: %s", e.StatusCode, cause, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Cause }

// NewUncaughtError wraps an arbitrary panic/error value caught by the
// FilterProcessor while running the filters of stage. className identifies
// the offending filter for diagnostics, mirroring Zuul's
// UNCAUGHT_EXCEPTION_IN_<STAGE>_FILTER_<class> error cause convention.
func NewUncaughtError(stage, className string, cause error) *GatewayError {
	errorCause := fmt.Sprintf("UNCAUGHT_EXCEPTION_IN_%s_FILTER", stage)
	if className != "" {
		errorCause += "_" + className
	}
	return WrapGatewayError(cause, 500, errorCause)
}

// ConfigError signals that a FilterCompiler failed to turn a source blob
// into a Filter. The Loader logs it and retains whatever instance it had
// previously compiled for the same path; it never reaches a request.
type ConfigError struct {
	Path  string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error compiling %s: %v", e.Path, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func NewConfigError(path string, cause error) *ConfigError {
	return &ConfigError{Path: path, Cause: cause}
}
