package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$250", Money(250))
	assert.Equal(t, "$1,000", Money(1000))
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	_, err := e.RenderBytes("pages/home.html", TemplateData{})
	assert.Error(t, err)
}
