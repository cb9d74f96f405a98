// Package logger provides the process-wide leveled loggers used across
// streamhive. Info and Debug go to stdout, Warn and Error to stderr, so
// supervisor logs separate pipeline noise from actual failures.
package logger

import (
	"log"
	"os"
)

var (
	Info  *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
	Error *log.Logger
)

func init() {
	flags := log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

	Info = log.New(os.Stdout, "INFO: ", flags)
	Debug = log.New(os.Stdout, "DEBUG: ", flags)
	Warn = log.New(os.Stderr, "WARN: ", flags)
	Error = log.New(os.Stderr, "ERROR: ", flags)
}
