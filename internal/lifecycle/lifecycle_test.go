package lifecycle

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"macro-resolver/internal/logger"
)

type stubApp struct {
	started chan struct{}
	runErr  error
	closed  atomic.Int32
}

func newStubApp(runErr error) *stubApp {
	return &stubApp{started: make(chan struct{}), runErr: runErr}
}

func (a *stubApp) Run(ctx context.Context) error {
	close(a.started)
	if a.runErr != nil {
		return a.runErr
	}
	<-ctx.Done()
	return nil
}

func (a *stubApp) Close() error {
	a.closed.Add(1)
	return nil
}

func TestRunLoop_ShutdownSignal(t *testing.T) {
	log := logger.Wrap(zaptest.NewLogger(t))
	shutdown := make(chan os.Signal, 1)
	reload := make(chan os.Signal, 1)
	app := newStubApp(nil)

	done := make(chan error, 1)
	go func() {
		done <- runLoop(func() (Application, error) { return app, nil }, log, shutdown, reload)
	}()

	<-app.started
	shutdown <- syscall.SIGTERM

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not stop")
	}
	assert.EqualValues(t, 1, app.closed.Load())
}

func TestRunLoop_ReloadCreatesFreshApp(t *testing.T) {
	log := logger.Wrap(zaptest.NewLogger(t))
	shutdown := make(chan os.Signal, 1)
	reload := make(chan os.Signal, 1)

	apps := []*stubApp{newStubApp(nil), newStubApp(nil)}
	var created atomic.Int32
	createApp := func() (Application, error) {
		n := created.Add(1)
		return apps[n-1], nil
	}

	done := make(chan error, 1)
	go func() { done <- runLoop(createApp, log, shutdown, reload) }()

	<-apps[0].started
	reload <- syscall.SIGHUP
	<-apps[1].started
	shutdown <- os.Interrupt

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not stop")
	}
	assert.EqualValues(t, 2, created.Load())
	assert.EqualValues(t, 1, apps[0].closed.Load())
	assert.EqualValues(t, 1, apps[1].closed.Load())
}

func TestRunLoop_RunErrorIsReturned(t *testing.T) {
	log := logger.Wrap(zaptest.NewLogger(t))
	boom := errors.New("listener failed")
	app := newStubApp(boom)

	err := runLoop(func() (Application, error) { return app, nil }, log, make(chan os.Signal), make(chan os.Signal))
	require.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, app.closed.Load())
}

func TestRunLoop_CreateFailure(t *testing.T) {
	log := logger.Wrap(zaptest.NewLogger(t))
	err := runLoop(func() (Application, error) { return nil, errors.New("bad config") }, log, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create application")
}
