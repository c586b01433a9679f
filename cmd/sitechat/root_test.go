package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "SiteChat "+Version+"\n", out.String())
}

func TestServeFlagDefaults(t *testing.T) {
	cmd := newServeCmd()

	port, err := cmd.Flags().GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	root, err := cmd.Flags().GetString("root")
	require.NoError(t, err)
	assert.Equal(t, ".", root)

	delay, err := cmd.Flags().GetDuration("demo-delay")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Millisecond, delay)
}

func TestChatFlagDefaults(t *testing.T) {
	server, err := newChatCmd().Flags().GetString("server")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", server)
}

func TestUnknownSubcommand(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"nope"})
	assert.Error(t, root.Execute())
}
