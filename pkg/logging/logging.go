// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging is the printf-style logger shared by every package of the scheduler.
// Messages go to stderr so that command output on stdout stays machine readable.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetOutput redirects all log output.
func SetOutput(out io.Writer) {
	logger.SetOutput(out)
}

// SetVerbosity maps the number of -v flags to a log level.
func SetVerbosity(verbosity int) {
	switch {
	case verbosity >= 2:
		logger.SetLevel(logrus.TraceLevel)
	case verbosity == 1:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
}

// SetQuiet restricts output to errors.
func SetQuiet() {
	logger.SetLevel(logrus.ErrorLevel)
}

// Info logs a message at info level.
func Info(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// Warn logs a message at warning level.
func Warn(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// Error logs a message at error level.
func Error(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// Debug logs a message at debug level.
func Debug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}
