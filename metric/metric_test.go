package metric_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/ringpipe/metric"
)

func TestMeter(t *testing.T) {
	reset := metric.Meter("test.source", 44100)

	measure := reset()
	measure(512)
	measure(512)
	measure(256)
	metric.Dropped("test.source")

	m := metric.Get("test.source")
	require.NotEmpty(t, m)
	assert.Equal(t, "3", m[metric.FrameCounter])
	assert.Equal(t, "1280", m[metric.SampleCounter])
	assert.Equal(t, "1", m[metric.DropCounter])
	assert.NotEmpty(t, m[metric.DurationCounter])
	assert.NotEmpty(t, m[metric.LatencyCounter])

	all := metric.GetAll()
	assert.Contains(t, all, "test.source")
}

func TestMeterSameKey(t *testing.T) {
	// second meter for the same key accumulates into the same counters
	reset := metric.Meter("test.shared", 48000)
	reset()(100)
	reset = metric.Meter("test.shared", 48000)
	reset()(100)

	m := metric.Get("test.shared")
	assert.Equal(t, "2", m[metric.FrameCounter])
}
