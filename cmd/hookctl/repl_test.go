package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReplSession(t *testing.T) {
	verbose, autoload = false, "*"
	var out bytes.Buffer
	c, err := startHost(&out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &session{c: c, stopped: make(chan struct{})}
	go func() {
		defer close(s.stopped)
		_ = c.Run(ctx)
	}()

	require.Equal(t, "[core.weechat] ", s.prompt())
	require.Contains(t, s.complete("/buf"), "/buffer")
	require.Empty(t, s.complete("plain text"))

	cancel()
	select {
	case <-s.stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("loop did not stop")
	}
	require.False(t, s.call(func() {}), "no loop to run on")
	require.Nil(t, s.complete("/buf"))
}
