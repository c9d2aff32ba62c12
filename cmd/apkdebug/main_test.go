package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmdHasPatchAndGenkeySubcommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "patch")
	assert.Contains(t, names, "genkey")
}
