package psd

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/biometra/go-psd/logger"
)

func newMockLogger() *logger.MockLogger {
	mockLogger := logger.NewMockLogger()
	mockLogger.On("Debug", mock.Anything, mock.Anything).Return()
	mockLogger.On("Error", mock.Anything, mock.Anything).Return()

	return mockLogger
}

func TestTaskManager_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewTaskManager(ctx, newMockLogger())

	taskFunc := func() bool {
		return true
	}

	err := taskMgr.Start("testTask", taskFunc)
	require.NoError(t, err)

	// Allow some time for the goroutine to start
	time.Sleep(100 * time.Millisecond)

	// Verify that the task is running
	assert.Equal(t, 1, taskMgr.TaskCount())

	// Cancel the context to stop the task
	cancel()

	// Allow some time for the goroutine to stop
	time.Sleep(100 * time.Millisecond)

	// Verify that the task has stopped
	assert.Equal(t, 0, taskMgr.TaskCount())
}

func TestTaskManager_StartTerminatesOnFalse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewTaskManager(ctx, newMockLogger())

	var runs atomic.Int32
	taskFunc := func() bool {
		return runs.Add(1) < 3
	}

	err := taskMgr.Start("testTask", taskFunc)
	require.NoError(t, err)

	// Allow some time for the loop to run to completion
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(3), runs.Load())
	assert.Equal(t, 0, taskMgr.TaskCount())
}

func TestTaskManager_StartInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewTaskManager(ctx, newMockLogger())

	var runs atomic.Int32
	taskFunc := func() bool {
		runs.Add(1)
		return true
	}

	ticker, err := taskMgr.StartInterval("testInterval", taskFunc, 10*time.Millisecond, true)
	require.NoError(t, err)
	require.NotNil(t, ticker)

	// Allow some time for the interval task to run
	time.Sleep(100 * time.Millisecond)

	// Verify that the task is running and has fired more than once
	assert.Equal(t, 1, taskMgr.TaskCount())
	assert.Greater(t, runs.Load(), int32(1))

	// Cancel the context to stop the task
	cancel()

	// Allow some time for the goroutine to stop
	time.Sleep(100 * time.Millisecond)

	// Verify that the task has stopped
	assert.Equal(t, 0, taskMgr.TaskCount())
}

func TestTaskManager_StartIntervalValidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewTaskManager(ctx, newMockLogger())
	defer func() {
		taskMgr.Stop()
		taskMgr.Wait()
	}()

	taskFunc := func() bool {
		return true
	}

	_, err := taskMgr.StartInterval("testInterval", taskFunc, 0, false)
	require.Error(t, err)

	_, err = taskMgr.StartInterval("testInterval", taskFunc, 10*time.Millisecond, false)
	require.NoError(t, err)

	// Duplicate name is rejected while the first task is still registered.
	_, err = taskMgr.StartInterval("testInterval", taskFunc, 10*time.Millisecond, false)
	require.Error(t, err)
}

func TestTaskManager_StopInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewTaskManager(ctx, newMockLogger())

	var runs atomic.Int32
	taskFunc := func() bool {
		runs.Add(1)
		return true
	}

	_, err := taskMgr.StartInterval("testInterval", taskFunc, 10*time.Millisecond, false)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	err = taskMgr.StopInterval("testInterval")
	require.NoError(t, err)

	// Stopping an unknown interval fails.
	err = taskMgr.StopInterval("missing")
	require.Error(t, err)

	// The ticker is stopped, so no further runs accumulate.
	stopped := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())

	taskMgr.Stop()
	taskMgr.Wait()
}

func TestTaskManager_StopAndWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewTaskManager(ctx, newMockLogger())

	taskFunc := func() bool {
		time.Sleep(time.Millisecond)
		return true
	}

	require.NoError(t, taskMgr.Start("loop", taskFunc))
	_, err := taskMgr.StartInterval("tick", taskFunc, 10*time.Millisecond, false)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, taskMgr.TaskCount())

	taskMgr.Stop()
	taskMgr.Wait()

	assert.Equal(t, 0, taskMgr.TaskCount())

	// Wait recreates the context, so new tasks start again.
	require.NoError(t, taskMgr.Start("loop2", func() bool { return false }))
	taskMgr.Stop()
	taskMgr.Wait()
}

func TestTaskManager_RecoversPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewTaskManager(ctx, newMockLogger())

	_, err := taskMgr.StartInterval("panics", func() bool {
		panic("boom")
	}, 10*time.Millisecond, false)
	require.NoError(t, err)

	// The panic is recovered and terminates the task without crashing
	// the process.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, taskMgr.TaskCount())

	taskMgr.Stop()
	taskMgr.Wait()
}
