package logging

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	dateFormat      = "02/Jan/2006:15:04:05 -0700"
	commonLogFormat = `%s - - [%s] "%s %s %s" %d %d`
	combinedLogFormat = commonLogFormat + ` "%s" "%s"`
	// accessLogFormat adds the duration in ms, the requested host, and the
	// gateway flow id to the combined log format.
	accessLogFormat = combinedLogFormat + " %d %s %s\n"
)

type accessLogFormatter struct {
	format string
}

// AccessEntry is one completed request/response pair as seen by the
// pipeline, handed to LogAccess after the response has been written.
type AccessEntry struct {
	Request      *http.Request
	StatusCode   int
	ResponseSize int64
	Duration     time.Duration
	RequestTime  time.Time
	FlowID       string
}

var accessLog *logrus.Logger

func stripPort(address string) string {
	if h, _, err := net.SplitHostPort(address); err == nil {
		return h
	}
	return address
}

func remoteAddr(r *http.Request) string {
	if ff := r.Header.Get("X-Forwarded-For"); ff != "" {
		return ff
	}
	return r.RemoteAddr
}

func remoteHost(r *http.Request) string {
	h := stripPort(remoteAddr(r))
	if h != "" {
		return h
	}
	return "-"
}

func (f *accessLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	keys := []string{
		"host", "timestamp", "method", "uri", "proto",
		"status", "response-size", "referer", "user-agent",
		"duration", "requested-host", "flowid"}

	values := make([]interface{}, len(keys))
	for i, key := range keys {
		values[i] = e.Data[key]
	}
	return []byte(fmt.Sprintf(f.format, values...)), nil
}

// LogAccess writes one access log line in combined log format, extended
// with the request's processing duration and gateway flow id.
func LogAccess(entry *AccessEntry) {
	if accessLog == nil || entry == nil {
		return
	}

	ts := entry.RequestTime.Format(dateFormat)

	host := "-"
	method := ""
	uri := ""
	proto := ""
	referer := ""
	userAgent := ""
	requestedHost := ""

	if entry.Request != nil {
		host = remoteHost(entry.Request)
		method = entry.Request.Method
		uri = entry.Request.RequestURI
		proto = entry.Request.Proto
		referer = entry.Request.Referer()
		userAgent = entry.Request.UserAgent()
		requestedHost = entry.Request.Host
	}

	flowID := entry.FlowID
	if flowID == "" {
		flowID = "-"
	}

	accessLog.WithFields(logrus.Fields{
		"timestamp":      ts,
		"host":           host,
		"method":         method,
		"uri":            uri,
		"proto":          proto,
		"referer":        referer,
		"user-agent":     userAgent,
		"status":         entry.StatusCode,
		"response-size":  entry.ResponseSize,
		"requested-host": requestedHost,
		"duration":       int64(entry.Duration / time.Millisecond),
		"flowid":         flowID,
	}).Infoln()
}
