// Package metric collects run-time counters of pipeline stages and
// publishes them with expvar.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pipelined.dev/ringpipe/frame"
)

const stagesLabel = "ringpipe.stages"

const (
	// FrameCounter measures number of frames.
	FrameCounter = "Frames"
	// SampleCounter measures number of samples.
	SampleCounter = "Samples"
	// DropCounter measures number of frames dropped on overflow.
	DropCounter = "Drops"
	// LatencyCounter measures latency between processing calls.
	LatencyCounter = "Latency"
	// DurationCounter counts the duration of processed signal.
	DurationCounter = "Duration"
)

var (
	stages = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		FrameCounter,
		SampleCounter,
		DropCounter,
		LatencyCounter,
		DurationCounter,
	}
)

// Get returns metric values for provided stage key.
func Get(key string) map[string]string {
	return getCounters(key)
}

// GetAll returns counters for all measured stages.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	stages.Lock()
	defer stages.Unlock()
	for key := range stages.m {
		m[key] = getCounters(key)
	}
	return m
}

func getCounters(stageKey string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(expvarKey(stageKey, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns a new Measure closure. The closure is needed to
// postpone metrics capture until the stage is actually running.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when a frame is processed.
type MeasureFunc func(samples int64)

// Meter creates a new meter closure to capture stage counters. Key
// identifies the stage across all pipes of the process.
func Meter(key string, sampleRate int) ResetFunc {
	metric := stages.get(key)
	return func() MeasureFunc {
		calledAt := time.Now()
		var (
			frameLen      int64
			frameDuration time.Duration
		)
		return func(samples int64) {
			metric.latency.set(time.Since(calledAt))
			metric.frames.Add(1)
			metric.samples.Add(samples)
			// recalculate frame duration only when frame size has changed
			if frameLen != samples {
				frameLen = samples
				frameDuration = frame.DurationOf(sampleRate, samples)
			}
			metric.duration.add(frameDuration)
			calledAt = time.Now()
		}
	}
}

// Dropped counts an overflow drop for provided stage key.
func Dropped(key string) {
	stages.get(key).drops.Add(1)
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(stageKey string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[stageKey]; ok {
		return metric
	}
	metric := newMetric(stageKey)
	m.m[stageKey] = metric
	return metric
}

type metric struct {
	key      string
	frames   *expvar.Int
	samples  *expvar.Int
	drops    *expvar.Int
	latency  *duration
	duration *duration
}

func newMetric(stageKey string) metric {
	m := metric{
		key:      stageKey,
		frames:   expvar.NewInt(expvarKey(stageKey, FrameCounter)),
		samples:  expvar.NewInt(expvarKey(stageKey, SampleCounter)),
		drops:    expvar.NewInt(expvarKey(stageKey, DropCounter)),
		latency:  &duration{},
		duration: &duration{},
	}
	expvar.Publish(expvarKey(stageKey, LatencyCounter), m.latency)
	expvar.Publish(expvarKey(stageKey, DurationCounter), m.duration)
	return m
}

func expvarKey(stageKey, counter string) string {
	return fmt.Sprintf("%s.%s.%s", stagesLabel, stageKey, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)).String())
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
