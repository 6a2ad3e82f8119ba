package relaylog

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultsToInfo(t *testing.T) {
	log := New("")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNew_ParsesValidLevel(t *testing.T) {
	log := New("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNew_FallsBackOnInvalidLevel(t *testing.T) {
	log := New("not-a-real-level")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNew_UsesFullTimestampTextFormatter(t *testing.T) {
	log := New("info")
	formatter, ok := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
	assert.True(t, formatter.FullTimestamp)
}
