package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/gridwatch/message"
)

func TestMockNATSClient_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	client := NewMockNATSClient()

	var received [][]byte
	require.NoError(t, client.Subscribe(ctx, "grid.voltage", func(_ context.Context, data []byte) {
		received = append(received, data)
	}))
	assert.Equal(t, 1, client.SubscriptionCount("grid.voltage"))

	require.NoError(t, client.Publish(ctx, "grid.voltage", []byte("a")))
	require.NoError(t, client.Publish(ctx, "grid.current", []byte("b")))

	assert.Equal(t, [][]byte{[]byte("a")}, received)
	assert.Equal(t, 1, client.GetMessageCount("grid.current"))

	client.Clear("grid.voltage")
	assert.Nil(t, client.GetMessages("grid.voltage"))
}

func TestMockNATSClient_Close(t *testing.T) {
	ctx := context.Background()
	client := NewMockNATSClient()
	require.NoError(t, client.Close())

	assert.True(t, client.IsClosed())
	assert.ErrorIs(t, client.Publish(ctx, "x", nil), ErrClientClosed)
	assert.ErrorIs(t, client.Subscribe(ctx, "x", func(context.Context, []byte) {}), ErrClientClosed)
}

func TestMockNATSClient_FailPublish(t *testing.T) {
	boom := errors.New("boom")
	client := NewMockNATSClient()
	client.FailPublish(boom)

	assert.ErrorIs(t, client.Publish(context.Background(), "x", nil), boom)
	client.FailPublish(nil)
	assert.NoError(t, client.Publish(context.Background(), "x", nil))
}

func TestWaitForMessageCount(t *testing.T) {
	client := NewMockNATSClient()
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = client.Publish(context.Background(), "grid.freq", []byte("1"))
	}()

	WaitForMessageCount(t, client, "grid.freq", 1, time.Second)
}

func TestReadingJSON(t *testing.T) {
	var r message.Reading
	require.NoError(t, json.Unmarshal(ReadingJSON("voltage", 7, 231.5), &r))
	assert.Equal(t, message.Reading{SensorID: "voltage", Tick: 7, Value: 231.5}, r)
}

func TestFixtures(t *testing.T) {
	assert.Equal(t, []float64{0, 2, 4, 6, 8}, Ramp(5, 0, 2))
	assert.Equal(t, []float64{5, 5, 5}, Constant(3, 5))
}

func TestMockStage(t *testing.T) {
	stage := NewPassthroughStage("p")
	out, err := stage.Process(context.Background(), message.Series{1})
	require.NoError(t, err)

	assert.Equal(t, message.Series{1}, out)
	assert.Equal(t, int32(1), stage.Calls())
	assert.Equal(t, message.KindSeries, stage.Accepts())
}
