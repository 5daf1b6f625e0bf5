package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTypes(t *testing.T) {
	assert.Equal(t, []string{"bar", "line", "pie"}, splitTypes(" bar, line,,pie "))
	assert.Nil(t, splitTypes(" , "))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["generate"])
	assert.True(t, names["review-charts"])
}
