package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/phrazzld/scry-analyzer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	subject     string
	data        []byte
	hasDeadline bool
}

// fakeJetStream records publishes and optionally fails them.
type fakeJetStream struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (f *fakeJetStream) Publish(ctx context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, hasDeadline := ctx.Deadline()
	f.calls = append(f.calls, publishCall{subject: subject, data: data, hasDeadline: hasDeadline})
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: "analysis", Sequence: uint64(len(f.calls))}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPublisher(t *testing.T) {
	t.Parallel()

	_, err := NewPublisher(nil, time.Second, testLogger())
	assert.Error(t, err)

	_, err = NewPublisher(&fakeJetStream{}, time.Second, nil)
	assert.Error(t, err)

	p, err := NewPublisher(&fakeJetStream{}, 0, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, p.timeout)
	assert.NoError(t, p.Close(), "publisher without a connection closes cleanly")
}

func TestPublish_WireFormat(t *testing.T) {
	t.Parallel()

	js := &fakeJetStream{}
	p, err := NewPublisher(js, time.Second, testLogger())
	require.NoError(t, err)

	channel := domain.ChannelName("ns", "t1")
	require.NoError(t, p.Publish(context.Background(), channel, domain.Fragment{Message: "Hello", TaskType: domain.TaskTypeText}))
	require.NoError(t, p.Publish(context.Background(), channel, domain.TerminalFragment(domain.TaskTypeText)))

	require.Len(t, js.calls, 2)
	assert.Equal(t, "ns.t1", js.calls[0].subject)
	assert.True(t, js.calls[0].hasDeadline)
	assert.JSONEq(t, `{"message":"Hello","task_type":"text"}`, string(js.calls[0].data))
	assert.JSONEq(t, `{"message":"__end__","task_type":"text"}`, string(js.calls[1].data))

	var decoded domain.Fragment
	require.NoError(t, json.Unmarshal(js.calls[1].data, &decoded))
	assert.True(t, decoded.IsTerminal())
}

func TestPublish_Failure(t *testing.T) {
	t.Parallel()

	cause := errors.New("no responders available for request")
	p, err := NewPublisher(&fakeJetStream{err: cause}, time.Second, testLogger())
	require.NoError(t, err)

	err = p.Publish(context.Background(), "ns.t1", domain.Fragment{Message: "x", TaskType: domain.TaskTypePhoto})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPublish))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "ns.t1")
}
