// Package builtin holds the gateway's plain-Go filters: the ones that
// implement part of the public contract itself (the ERROR response
// format) rather than being user-authored scripts, mirroring how the
// teacher module ships a handful of native filters (filters/static.go,
// filters/healthcheck.go) alongside the scripted/dynamic ones.
package builtin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
)

const (
	errorCauseHeader  = "X-Netflix-Error-Cause"
	legacyCauseHeader = "X-Zuul-Error-Cause"
)

// ErrorFilter is the bundled ERROR-kind filter. It is registered with a
// high Order so scripts in the ERROR directory run first. It is skipped
// only when the error is already marked handled; the Lua ctx table gives
// scripts no way to set that mark, so after any scripted ERROR filter this
// one still renders the status, body, and cause header.
type ErrorFilter struct{}

func NewErrorFilter() *ErrorFilter { return &ErrorFilter{} }

func (f *ErrorFilter) Name() string       { return "builtin-error" }
func (f *ErrorFilter) Kind() filters.Kind { return filters.KindError }
func (f *ErrorFilter) Order() int         { return 1 << 20 }
func (f *ErrorFilter) Disabled() bool     { return false }

func (f *ErrorFilter) ShouldRun(ctx *gwcontext.RequestContext) bool {
	return ctx.Throwable != nil && !ctx.ErrorHandled()
}

func (f *ErrorFilter) Run(ctx *gwcontext.RequestContext) (interface{}, error) {
	ctx.SetErrorHandled()

	gwErr := ctx.Throwable
	statusCode := gwErr.StatusCode
	cause := gwErr.ErrorCause
	message := gwErr.Message

	params := requestParams(ctx)
	version, output, callback, overrideStatus := parseErrorParams(params)

	httpStatus := statusCode
	if overrideStatus || callback != "" {
		httpStatus = 200
		if version == "1.5" || version == "2.0" {
			version = "1"
		}
	}

	body := renderErrorBody(version, output, message, statusCode, callback)

	ctx.ResponseStatusCode = httpStatus
	ctx.ResponseBody = []byte(body)
	if cause == "" {
		ctx.ResponseHeaders = append(ctx.ResponseHeaders,
			gwcontext.HeaderPair{Name: legacyCauseHeader, Value: "Zuul Error UNKNOWN Cause"})
	} else {
		ctx.ResponseHeaders = append(ctx.ResponseHeaders,
			gwcontext.HeaderPair{Name: errorCauseHeader, Value: "Zuul Error: " + cause})
	}

	return nil, nil
}

func requestParams(ctx *gwcontext.RequestContext) map[string]string {
	params := map[string]string{}
	if ctx.Request == nil {
		return params
	}
	for k, v := range ctx.Request.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func parseErrorParams(params map[string]string) (version, output, callback string, overrideStatus bool) {
	version = params["v"]
	if version == "" {
		version = "1"
	}
	output = params["output"]
	if output == "" {
		output = "xml"
	}
	callback = params["callback"]
	overrideStatus = params["override_error_status"] == "true"
	return
}

func renderErrorBody(version, output, message string, statusCode int, callback string) string {
	simplified := version == "1.5" || version == "2.0"

	if output == "json" {
		var body string
		if simplified {
			body = jsonStatus(map[string]interface{}{"message": message})
		} else {
			body = jsonStatus(map[string]interface{}{"message": message, "status_code": statusCode})
		}
		if callback != "" {
			return fmt.Sprintf("%s(%s);", callback, body)
		}
		return body
	}

	if simplified {
		return fmt.Sprintf("<status><message>%s</message></status>", escapeXML(message))
	}
	return fmt.Sprintf("<status><status_code>%d</status_code><message>%s</message></status>", statusCode, escapeXML(message))
}

func jsonStatus(status map[string]interface{}) string {
	b, err := json.Marshal(struct {
		Status map[string]interface{} `json:"status"`
	}{Status: status})
	if err != nil {
		return `{"status": {"message": "` + err.Error() + `"}}`
	}
	return string(b)
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
