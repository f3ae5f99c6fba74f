// Package logging sets up the gateway's application logger and its
// separate access logger, both on top of github.com/sirupsen/logrus, the
// same split the teacher's own logging package makes between an
// application-wide logrus.StandardLogger and a dedicated access log
// instance with its own formatter.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type prefixFormatter struct {
	prefix    string
	formatter logrus.Formatter
}

// Options configures Init.
type Options struct {
	// ApplicationLogPrefix is prepended to every application log line,
	// primarily to distinguish it from the access log when both are
	// pointed at the same output.
	ApplicationLogPrefix string

	// ApplicationLogOutput is where application log entries go; os.Stderr
	// when nil.
	ApplicationLogOutput io.Writer

	// ApplicationLogJSONEnabled switches the application logger to
	// logrus.JSONFormatter instead of its default text formatter.
	ApplicationLogJSONEnabled bool

	// AccessLogOutput is where access log entries go; os.Stderr when nil.
	AccessLogOutput io.Writer

	// AccessLogDisabled turns off LogAccess entirely.
	AccessLogDisabled bool

	// AccessLogJSONEnabled switches the access log to JSON lines instead
	// of the combined log format.
	AccessLogJSONEnabled bool
}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}
	return append([]byte(f.prefix), b...), nil
}

func initApplicationLog(o Options) {
	if o.ApplicationLogJSONEnabled {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if o.ApplicationLogPrefix != "" {
		logrus.SetFormatter(&prefixFormatter{o.ApplicationLogPrefix, logrus.StandardLogger().Formatter})
	}
	if o.ApplicationLogOutput != nil {
		logrus.SetOutput(o.ApplicationLogOutput)
	}
}

func initAccessLog(output io.Writer, jsonEnabled bool) {
	l := logrus.New()
	if jsonEnabled {
		l.Formatter = &logrus.JSONFormatter{TimestampFormat: dateFormat, DisableTimestamp: true}
	} else {
		l.Formatter = &accessLogFormatter{accessLogFormat}
	}
	l.Out = output
	l.Level = logrus.InfoLevel
	accessLog = l
}

// Init configures the application and access loggers according to o. It is
// meant to be called once, early in cmd/gatewayd's startup.
func Init(o Options) {
	initApplicationLog(o)

	if !o.AccessLogDisabled {
		out := o.AccessLogOutput
		if out == nil {
			out = os.Stderr
		}
		initAccessLog(out, o.AccessLogJSONEnabled)
	}
}
