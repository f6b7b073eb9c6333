package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestServeDrainsBeforeClosing(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished, closedEarly atomic.Bool

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		finished.Store(true)
		w.WriteHeader(http.StatusOK)
	})}

	closed := make(chan struct{})
	closer := closerFunc(func() error {
		if !finished.Load() {
			closedEarly.Store(true)
		}
		close(closed)

		return nil
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- serve(ctx, srv, ln, closer, zap.NewNop().Sugar())
	}()

	responded := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			responded <- 0
			return
		}
		resp.Body.Close()
		responded <- resp.StatusCode
	}()

	<-entered
	cancel()

	select {
	case <-closed:
		t.Fatal("engine closed while a request was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	assert.Equal(t, http.StatusOK, <-responded)
	require.NoError(t, <-served)
	<-closed
	assert.False(t, closedEarly.Load())
}
