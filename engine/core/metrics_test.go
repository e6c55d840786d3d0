package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)
	assert.Equal(t, uint64(AVG_COUNT), m.TotalFrames())

	// a second window must not accumulate on top of the first
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.020)
	}
	assert.InDelta(t, 20.0, m.FrameTime(), 1e-9)

	m = NewMetrics()
	for i := 0; i < 80; i++ {
		m.Update(0.0125)
	}
	assert.Equal(t, float64(80), m.FPS())
}

func TestClockElapsed(t *testing.T) {
	now := time.Unix(100, 0)
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	assert.Zero(t, c.Elapsed(), "not started")

	c.Start()
	now = now.Add(1500 * time.Millisecond)
	c.Update()
	assert.InDelta(t, 1.5, c.Elapsed(), 1e-9)

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	assert.InDelta(t, 1.5, c.Elapsed(), 1e-9)
}

func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("DEBUG")
	assert.NoError(t, err)
	assert.Equal(t, LogLevelDebug, l)

	l, err = ParseLogLevel("")
	assert.NoError(t, err)
	assert.Equal(t, LogLevelInfo, l)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}
