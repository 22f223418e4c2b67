package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/scry-analyzer/internal/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finished(taskType, outcome string, dispatched bool, fragments, failures int) *events.TaskEvent {
	e := events.NewTaskEvent(events.TaskFinished, "t1", taskType, "completed")
	e.Outcome = outcome
	e.Dispatched = dispatched
	e.Fragments = fragments
	e.PublishFailures = failures
	e.Duration = 1500 * time.Millisecond
	return e
}

func TestCollector_TaskLifecycle(t *testing.T) {
	t.Parallel()

	c, err := NewCollector()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.HandleEvent(ctx, events.NewTaskEvent(events.TaskStarted, "t1", "text", "dispatching")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.tasksInFlight))

	require.NoError(t, c.HandleEvent(ctx, finished("text", "ack", true, 3, 1)))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.tasksInFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.tasksTotal.WithLabelValues("text", "ack")))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.fragments.WithLabelValues("text")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.publishFailures.WithLabelValues("text")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.taskDuration, "analyzer_task_duration_seconds"))
}

func TestCollector_RejectedTaskDoesNotTouchInFlight(t *testing.T) {
	t.Parallel()

	c, err := NewCollector()
	require.NoError(t, err)

	require.NoError(t, c.HandleEvent(context.Background(), finished("", "requeue", false, 0, 0)))

	assert.Equal(t, float64(0), testutil.ToFloat64(c.tasksInFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.tasksTotal.WithLabelValues("unknown", "requeue")))
}

func TestCollector_NilEvent(t *testing.T) {
	t.Parallel()

	c, err := NewCollector()
	require.NoError(t, err)
	assert.Error(t, c.HandleEvent(context.Background(), nil))
}

func TestCollector_Handler(t *testing.T) {
	t.Parallel()

	c, err := NewCollector()
	require.NoError(t, err)
	c.SetBuildInfo("v1.2.3")
	require.NoError(t, c.HandleEvent(context.Background(), finished("photo", "ack", false, 1, 0)))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `analyzer_build_info{version="v1.2.3"} 1`)
	assert.Contains(t, text, `analyzer_tasks_total{outcome="ack",task_type="photo"} 1`)
	assert.Contains(t, text, "analyzer_tasks_in_flight 0")
	assert.Contains(t, text, "go_goroutines")
}
