package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportCmd_Flags(t *testing.T) {
	cmd := importCmd()

	flag := cmd.Flag("workers")
	assert.NotNil(t, flag, "workers flag should exist")
	assert.Equal(t, "4", flag.DefValue)

	flag = cmd.Flag("thumbnail-size")
	assert.NotNil(t, flag, "thumbnail-size flag should exist")
	assert.Equal(t, "256", flag.DefValue)

	flag = cmd.Flag("thumbnail-format")
	assert.NotNil(t, flag, "thumbnail-format flag should exist")
	assert.Equal(t, "jpeg", flag.DefValue)

	flag = cmd.Flag("recursive")
	assert.NotNil(t, flag, "recursive flag should exist")
	assert.Equal(t, "false", flag.DefValue)
	assert.Equal(t, "r", flag.Shorthand)
}
