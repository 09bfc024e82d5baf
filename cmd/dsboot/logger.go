package main

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/moffa90/go-dsboot/bootloader"
)

// logrusLogger adapts logrus to bootloader.Logger.
type logrusLogger struct {
	entry *log.Entry
}

func newLogger(component string) bootloader.Logger {
	return &logrusLogger{entry: log.WithField("component", component)}
}

func (l *logrusLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Info(msg)
}

func (l *logrusLogger) Error(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Error(msg)
}

// fields turns alternating keys and values into logrus fields.
// A trailing key without a value is logged under "extra".
func fields(kv []interface{}) log.Fields {
	f := make(log.Fields, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		f["extra"] = kv[len(kv)-1]
	}
	return f
}

func setupLogging(w io.Writer, level string, verbose bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	if verbose {
		lvl = log.DebugLevel
	}
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}
