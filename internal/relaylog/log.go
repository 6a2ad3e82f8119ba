// Package relaylog configures the logrus logger shared by both relay
// binaries, matching services/bifrost/cmd/bifrost/main.go's formatter and
// level setup.
package relaylog

import "github.com/sirupsen/logrus"

// New builds a logrus logger with full-timestamp text output at level,
// falling back to info on an empty or unrecognised level string.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	if level != "" {
		if parsed, err := logrus.ParseLevel(level); err == nil {
			log.SetLevel(parsed)
		}
	}
	return log
}
