package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssigneeStyle(t *testing.T) {
	assert.Equal(t, mutedStyle.GetForeground(), assigneeStyle("").GetForeground())
	assert.Equal(t, assigneeStyle("u1").GetForeground(), assigneeStyle("u1").GetForeground())
	assert.Contains(t, assigneePalette, assigneeStyle("u2").GetForeground())
}
