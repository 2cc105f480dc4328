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

// Package logging provides the leveled logging facade used by every
// workflow step. It wraps logrus so that commands can switch the whole
// process into debug mode with a single call.
package logging

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
}

// SetDebug toggles debug-level logging for the whole process.
func SetDebug(debug bool) {
	if debug {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	logger.SetLevel(logrus.InfoLevel)
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// Info logs a formatted message at info level.
func Info(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// Error logs a formatted message at error level.
func Error(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// Fatal logs a formatted message and exits with a non-zero status.
func Fatal(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

var stepBanner = color.New(color.FgCyan, color.Bold)

// Step announces a major workflow step on stdout. Banners are colored
// only when stdout is a terminal.
func Step(format string, args ...interface{}) {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		stepBanner.Printf(format+"\n", args...)
		return
	}
	color.New().Printf(format+"\n", args...)
}
