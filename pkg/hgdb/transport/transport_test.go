package transport

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	payload, err := json.Marshal(CommandPayload{Command: "continue"})
	require.NoError(t, err)
	f := Frame{Request: true, Type: TypeCommand, Token: "tok-1", Payload: payload}

	raw, err := EncodeFrame(f)
	require.NoError(t, err)

	got, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, f.Type, got.Type)
	assert.Equal(t, f.Token, got.Token)

	cmd, err := DecodePayload[CommandPayload](got)
	require.NoError(t, err)
	assert.Equal(t, "continue", cmd.Command)
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	d := NewDispatcher(nil)
	defer d.Close()

	d.Handle(TypeCommand, func(ctx context.Context, req Frame) (any, RequestType, error) {
		cmd, err := DecodePayload[CommandPayload](req)
		if err != nil {
			return nil, "", err
		}
		return GenericResponse{Status: StatusSuccess, Reason: cmd.Command}, TypeCommand, nil
	})

	payload, _ := json.Marshal(CommandPayload{Command: "step-over"})
	raw, err := EncodeFrame(Frame{Request: true, Type: TypeCommand, Token: "t1", Payload: payload})
	require.NoError(t, err)

	out := d.Dispatch(context.Background(), raw)
	require.NotNil(t, out)

	respFrame, err := DecodeFrame(out)
	require.NoError(t, err)
	assert.Equal(t, TypeCommand, respFrame.Type)
	assert.Equal(t, "t1", respFrame.Token)

	resp, err := DecodePayload[GenericResponse](respFrame)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "step-over", resp.Reason)
}

func TestDispatchUnknownTypeReturnsError(t *testing.T) {
	d := NewDispatcher(nil)
	defer d.Close()

	raw, err := EncodeFrame(Frame{Request: true, Type: "bogus", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	out := d.Dispatch(context.Background(), raw)
	respFrame, err := DecodeFrame(out)
	require.NoError(t, err)
	assert.Equal(t, TypeError, respFrame.Type)

	resp, err := DecodePayload[GenericResponse](respFrame)
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
}

func TestPublishBreakpointHitDeliversToSubscriber(t *testing.T) {
	d := NewDispatcher(nil)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := d.Subscribe(ctx, BreakpointHitTopic)
	require.NoError(t, err)

	hit := NewBreakpointHitResponse(42, "alu.sv", 10, 0)
	hit.AddLocalValue("a", "5")
	require.NoError(t, d.PublishBreakpointHit(ctx, hit))

	select {
	case msg := <-msgs:
		var got BreakpointHitResponse
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, uint64(42), got.Time)
		assert.Equal(t, "5", got.LocalValues["a"])
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for breakpoint-hit broadcast")
	}
}

func TestWatchTopicNaming(t *testing.T) {
	assert.Equal(t, "watch-7", WatchTopic(7))
}
