package camera

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startCamera(t *testing.T, m *Manager, facing FacingMode) {
	t.Helper()
	ready, err := m.Start(context.Background(), facing)
	require.NoError(t, err)
	require.False(t, ready.Blocked)
}

func TestCapture_BrightFrame(t *testing.T) {
	dev := newFakeDevice(makeTestImage(64, 48, color.Gray{Y: 200}))
	m, rec := newTestManager(dev)
	startCamera(t, m, FacingBack)

	frame, err := m.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, frame.Retries)
	assert.False(t, frame.Dim)
	assert.Equal(t, 64, frame.Width)
	assert.Equal(t, 48, frame.Height)
	assert.InDelta(t, 200, frame.Luminance, 0.5)
	assert.Equal(t, FacingBack, frame.Facing)
	assert.False(t, frame.Mirrored)
	assert.Empty(t, rec.recorded())

	// Результат - настоящий JPEG того же размера
	decoded, err := imaging.Decode(bytes.NewReader(frame.JPEG))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())
	assert.Equal(t, 48, decoded.Bounds().Dy())
}

func TestCapture_DarkFramesAcceptedAfterRetries(t *testing.T) {
	dev := newFakeDevice(makeTestImage(64, 48, color.Black))
	m, rec := newTestManager(dev)
	startCamera(t, m, FacingBack)

	frame, err := m.Capture(context.Background())
	require.NoError(t, err, "тёмный кадр принимается после повторов")

	assert.Equal(t, DefaultMaxDarkRetries, frame.Retries)
	assert.True(t, frame.Dim)
	assert.Less(t, frame.Luminance, DefaultDarkThreshold)
	assert.Equal(t, []time.Duration{DefaultDarkRetryDelay, DefaultDarkRetryDelay}, rec.recorded())
	assert.Equal(t, 3, dev.streams[0].grabs)
}

func TestCapture_DarkThenBright(t *testing.T) {
	dev := newFakeDevice(
		makeTestImage(64, 48, color.Black),
		makeTestImage(64, 48, color.Gray{Y: 150}),
	)
	m, rec := newTestManager(dev)
	startCamera(t, m, FacingBack)

	frame, err := m.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, frame.Retries)
	assert.False(t, frame.Dim)
	assert.InDelta(t, 150, frame.Luminance, 0.5)
	assert.Equal(t, []time.Duration{DefaultDarkRetryDelay}, rec.recorded())
}

func TestCapture_MirrorsFrontCamera(t *testing.T) {
	src := makeTestImage(64, 48, color.Gray{Y: 100})
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})

	tests := []struct {
		name     string
		facing   FacingMode
		markerX  int
		mirrored bool
	}{
		{name: "front", facing: FacingFront, markerX: 63, mirrored: true},
		{name: "back", facing: FacingBack, markerX: 0, mirrored: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(newFakeDevice(src))
			startCamera(t, m, tt.facing)

			frame, err := m.Capture(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.mirrored, frame.Mirrored)
			px := frame.Image.NRGBAAt(tt.markerX, 0)
			assert.Equal(t, uint8(255), px.R, "маркер должен оказаться в x=%d", tt.markerX)
			assert.Equal(t, uint8(0), px.G)
		})
	}
}

func TestCapture_WithoutSession(t *testing.T) {
	m, _ := newTestManager(newFakeDevice())

	_, err := m.Capture(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCapture_BlockedPlaybackIsNotReady(t *testing.T) {
	dev := newFakeDevice()
	dev.blockPlay = true
	m, _ := newTestManager(dev)

	ready, err := m.Start(context.Background(), FacingFront)
	require.NoError(t, err)
	require.True(t, ready.Blocked)

	_, err = m.Capture(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCapture_FrameError(t *testing.T) {
	dev := newFakeDevice()
	m, _ := newTestManager(dev)
	startCamera(t, m, FacingBack)

	stream := dev.streams[0]
	stream.mu.Lock()
	stream.frameErr = errors.New("sensor glitch")
	stream.mu.Unlock()

	_, err := m.Capture(context.Background())
	assert.ErrorIs(t, err, ErrCaptureFailed)
}

func TestCapture_CanceledDuringDarkRetry(t *testing.T) {
	dev := newFakeDevice(makeTestImage(32, 32, color.Black))
	m := NewManager(NewGate(dev), Settings{
		PlaybackTimeout: 50 * time.Millisecond,
		DarkRetryDelay:  time.Hour,
	})
	startCamera(t, m, FacingBack)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Capture(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Capture не прервался")
	}

	// Сессия пережила отмену запроса
	assert.Equal(t, StatusReady, m.Status().Status)
}

func TestRender_ResizesToLiveSize(t *testing.T) {
	src := makeTestImage(10, 10, color.White)

	out := Render(src, 40, 20, false)
	assert.Equal(t, 40, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())
}
