package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWSEndpoint(t *testing.T) {
	for in, expected := range map[string]string{
		"http://localhost:30333":     "ws://localhost:30333/ws",
		"https://rpc.example.org/":   "wss://rpc.example.org/ws",
		"ws://localhost:30333/ws":    "ws://localhost:30333/ws",
		"https://rpc.example.org/ws": "wss://rpc.example.org/ws",
	} {
		res, err := wsEndpoint(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, res, in)
	}

	_, err := wsEndpoint("tcp://localhost:30333")
	require.Error(t, err)
}
