package encoder

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWAVEncoderHeaderAndPayload(t *testing.T) {
	enc := NewWAVEncoder(44100, 2)
	samples := []float32{0, 0.5, -0.5, 1, -1}
	require.NoError(t, enc.Write(samples))

	blob := enc.CurrentBlob()
	require.Equal(t, "RIFF", string(blob[0:4]))
	require.Equal(t, "WAVE", string(blob[8:12]))
	require.Equal(t, "data", string(blob[36:40]))

	dataSize := binary.LittleEndian.Uint32(blob[40:44])
	require.EqualValues(t, len(samples)*2, dataSize)
	require.EqualValues(t, 44+len(samples)*2, enc.BytesWritten())
}

func TestWAVEncoderClampsOutOfRangeSamples(t *testing.T) {
	enc := NewWAVEncoder(44100, 1)
	require.NoError(t, enc.Write([]float32{2.0, -2.0}))
	blob := enc.CurrentBlob()
	payload := blob[44:]
	require.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(payload[0:2])))
	require.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(payload[2:4])))
}

func TestWAVEncoderStopIsIdempotent(t *testing.T) {
	enc := NewWAVEncoder(44100, 1)
	require.NoError(t, enc.Write([]float32{0.1}))

	blob, err := enc.Stop(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	again, err := enc.Stop(context.Background())
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestWAVEncoderWriteAfterStopFails(t *testing.T) {
	enc := NewWAVEncoder(44100, 1)
	_, err := enc.Stop(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, enc.Write([]float32{0.1}), ErrClosed)
}

func TestWAVEncoderDuration(t *testing.T) {
	enc := NewWAVEncoder(44100, 1)
	samples := make([]float32, 44100)
	require.NoError(t, enc.Write(samples))
	require.InDelta(t, 1.0, enc.Duration().Seconds(), 0.01)
}
