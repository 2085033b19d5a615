package origdst

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Port(t *testing.T) {
	t.Run("disabled returns fallback", func(t *testing.T) {
		r := Resolver{Enabled: false, Fallback: 8080}
		assert.Equal(t, 8080, r.Port(context.Background()))
	})

	t.Run("no connection in context returns fallback", func(t *testing.T) {
		r := Resolver{Enabled: true, Fallback: 9999}
		assert.Equal(t, 9999, r.Port(context.Background()))
	})

	t.Run("non-redirected connection returns fallback", func(t *testing.T) {
		server, client := net.Pipe()
		defer server.Close()
		defer client.Close()

		r := Resolver{Enabled: true, Fallback: 8080}
		ctx := WithConn(context.Background(), server)
		assert.Equal(t, 8080, r.Port(ctx))
	})
}

func TestConnFrom(t *testing.T) {
	_, ok := ConnFrom(context.Background())
	assert.False(t, ok)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	got, ok := ConnFrom(WithConn(context.Background(), server))
	require.True(t, ok)
	assert.Equal(t, server, got)
}

func TestLookup_NotTCP(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	_, err := Lookup(server)
	assert.Error(t, err)
}
