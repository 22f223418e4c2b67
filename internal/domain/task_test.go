package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskType(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"photo", "reviews", "text"} {
		tt, err := ParseTaskType(name)
		require.NoError(t, err)
		assert.Equal(t, name, tt.String())
	}

	_, err := ParseTaskType("video")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, ErrUnknownTaskType))
	assert.True(t, IsPermanent(err))
}

func TestDecodeTask(t *testing.T) {
	t.Parallel()

	t.Run("valid message", func(t *testing.T) {
		t.Parallel()
		task, err := DecodeTask([]byte(`{"task_type":"text","task_id":"t1","payload":["Desc A","Desc B"],"extra":1}`))
		require.NoError(t, err)
		assert.Equal(t, TaskTypeText, task.Type())
		assert.Equal(t, "t1", task.ID())
		require.Len(t, task.Payload(), 2)
		assert.JSONEq(t, `"Desc A"`, string(task.Payload()[0]))
	})

	t.Run("missing payload is empty", func(t *testing.T) {
		t.Parallel()
		task, err := DecodeTask([]byte(`{"task_type":"photo","task_id":"p1"}`))
		require.NoError(t, err)
		assert.Empty(t, task.Payload())
	})

	testCases := []struct {
		name string
		body string
	}{
		{name: "not json", body: `task_type=text`},
		{name: "json array", body: `["text"]`},
		{name: "missing task type", body: `{"task_id":"t1","payload":[]}`},
		{name: "unknown task type", body: `{"task_type":"video","task_id":"t1","payload":[]}`},
		{name: "missing task id", body: `{"task_type":"text","payload":[]}`},
		{name: "empty task id", body: `{"task_type":"text","task_id":"","payload":[]}`},
		{name: "task id with wildcard", body: `{"task_type":"text","task_id":"a.>","payload":[]}`},
		{name: "task id with space", body: `{"task_type":"text","task_id":"a b","payload":[]}`},
		{name: "payload not a list", body: `{"task_type":"text","task_id":"t1","payload":"Desc A"}`},
		{name: "task type wrong json type", body: `{"task_type":7,"task_id":"t1","payload":[]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			task, err := DecodeTask([]byte(tc.body))
			require.Error(t, err)
			assert.Nil(t, task)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
}

func TestTaskIsImmutable(t *testing.T) {
	t.Parallel()

	payload := []json.RawMessage{json.RawMessage(`"a"`)}
	task, err := NewTask(TaskTypeText, "t1", payload)
	require.NoError(t, err)

	payload[0][1] = 'z'
	got := task.Payload()
	assert.JSONEq(t, `"a"`, string(got[0]))

	got[0][1] = 'y'
	assert.JSONEq(t, `"a"`, string(task.Payload()[0]))
}
