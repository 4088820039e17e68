package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesLevelAndFormat(t *testing.T) {
	l := New("DEBUG", "json")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	l = New("nonsense", "")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}

func TestComponentTagsEntry(t *testing.T) {
	e := Component(New("info", "text"), "sweeper")
	assert.Equal(t, "sweeper", e.Data["component"])
}
