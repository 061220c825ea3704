package encoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMP3EncoderProducesNonEmptyBlobAfterStop(t *testing.T) {
	enc := NewMP3Encoder(44100, 2, 192)
	samples := make([]float32, 1152*2*3) // a few full shine blocks worth
	for i := range samples {
		samples[i] = 0.1
	}
	require.NoError(t, enc.Write(samples))

	blob, err := enc.Stop(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, blob)
	require.EqualValues(t, len(blob), enc.BytesWritten())
}

func TestMP3EncoderStopPadsPartialBlock(t *testing.T) {
	enc := NewMP3Encoder(44100, 2, 192)
	require.NoError(t, enc.Write(make([]float32, 100))) // less than one block
	blob, err := enc.Stop(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, blob)
}

func TestMP3EncoderWriteAfterStopFails(t *testing.T) {
	enc := NewMP3Encoder(44100, 1, 128)
	_, err := enc.Stop(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, enc.Write([]float32{0.1}), ErrClosed)
}

func TestMP3EncoderDurationTracksSamplesWritten(t *testing.T) {
	enc := NewMP3Encoder(44100, 1, 128)
	require.NoError(t, enc.Write(make([]float32, 44100)))
	require.InDelta(t, 1.0, enc.Duration().Seconds(), 0.01)
}
