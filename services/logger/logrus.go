package logsvc

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/session"
)

// LogrusLogger writes structured entries; extra args become fields.
type LogrusLogger struct {
	log *logrus.Logger
}

var _ core.Logger = (*LogrusLogger)(nil)

func NewLogrusLogger(out io.Writer, debug bool) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &LogrusLogger{log: l}
}

func (l LogrusLogger) entry(args []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			fields[logrus.ErrorKey] = a
		case map[string]interface{}:
			for k, v := range a {
				fields[k] = v
			}
		case *session.User:
			if a != nil {
				fields["user_id"] = a.ID
				fields["user_email"] = a.Email
			}
		}
	}
	return l.log.WithFields(fields)
}

func (l LogrusLogger) Debug(msg string, args ...interface{}) { l.entry(args).Debug(msg) }
func (l LogrusLogger) Info(msg string, args ...interface{})  { l.entry(args).Info(msg) }
func (l LogrusLogger) Warn(msg string, args ...interface{})  { l.entry(args).Warn(msg) }
func (l LogrusLogger) Error(msg string, args ...interface{}) { l.entry(args).Error(msg) }
func (l LogrusLogger) Fatal(msg string, args ...interface{}) { l.entry(args).Fatal(msg) }
