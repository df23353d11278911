package hold

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 10 * time.Millisecond

func tickFor(engine *Engine, total time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += frame {
		engine.Tick(frame)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(*Config) {}, valid: true},
		{name: "zero approach", mutate: func(c *Config) { c.ApproachRate = 0 }},
		{name: "negative gain", mutate: func(c *Config) { c.ApproachGain = -0.1 }},
		{name: "negative decay", mutate: func(c *Config) { c.DecayRate = -1 }},
		{name: "zero decay allowed", mutate: func(c *Config) { c.DecayRate = 0 }, valid: true},
		{name: "threshold above one", mutate: func(c *Config) { c.Threshold = 1.2 }},
		{name: "zero threshold", mutate: func(c *Config) { c.Threshold = 0 }},
		{name: "partial threshold", mutate: func(c *Config) { c.Threshold = 0.6 }, valid: true},
		{name: "negative step", mutate: func(c *Config) { c.MaxStep = -time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestHoldCompletesAroundContinuousDuration(t *testing.T) {
	calls := 0
	engine := New(DefaultConfig(), func() { calls++ })
	duration := DefaultConfig().HoldDuration()
	assert.InDelta(t, 7.636, duration.Seconds(), 0.01)

	require.True(t, engine.Start())
	tickFor(engine, duration*95/100)
	assert.False(t, engine.Completed())
	assert.Zero(t, calls)

	tickFor(engine, duration*7/100)
	assert.True(t, engine.Completed())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1.0, engine.Progress())
	assert.False(t, engine.Holding())
}

func TestCompletionFiresExactlyOnce(t *testing.T) {
	calls := 0
	engine := New(Config{ApproachRate: 1, DecayRate: 0.5, Threshold: 1, MaxStep: time.Second}, func() { calls++ })

	engine.Start()
	assert.True(t, engine.Tick(time.Second))
	assert.False(t, engine.Tick(time.Second))
	assert.False(t, engine.Start(), "start after completion is spent")
	engine.Stop()
	tickFor(engine, 5*time.Second)

	assert.Equal(t, 1, calls)
	assert.True(t, engine.Completed())
	assert.Equal(t, 1.0, engine.Progress(), "completed gesture keeps full progress")
}

func TestAccelerationWithProgress(t *testing.T) {
	engine := New(DefaultConfig(), nil)
	engine.Start()

	engine.Tick(DefaultMaxStep)
	first := engine.Progress()
	tickFor(engine, 4*time.Second)
	before := engine.Progress()
	engine.Tick(DefaultMaxStep)
	later := engine.Progress() - before

	assert.Greater(t, later, first)
}

func TestStopDecaysMonotonicallyToZero(t *testing.T) {
	engine := New(DefaultConfig(), nil)
	engine.Start()
	tickFor(engine, 3*time.Second)
	require.True(t, engine.Stop())
	assert.False(t, engine.Stop())

	previous := engine.Progress()
	require.Greater(t, previous, 0.0)
	for i := 0; i < 2000; i++ {
		engine.Tick(DefaultMaxStep)
		current := engine.Progress()
		assert.LessOrEqual(t, current, previous)
		assert.GreaterOrEqual(t, current, 0.0)
		previous = current
	}
	assert.Zero(t, engine.Progress())
}

func TestDecayIsSlowerThanApproach(t *testing.T) {
	engine := New(DefaultConfig(), nil)
	engine.Start()
	tickFor(engine, time.Second)
	gained := engine.Progress()

	engine.Stop()
	tickFor(engine, time.Second)
	assert.Greater(t, engine.Progress(), 0.0)
	assert.Less(t, gained-engine.Progress(), gained)
}

func TestTickClampsLargeSteps(t *testing.T) {
	engine := New(DefaultConfig(), nil)
	engine.Start()

	engine.Tick(10 * time.Second)
	assert.InDelta(t, 0.08*DefaultMaxStep.Seconds(), engine.Progress(), 1e-9)
	assert.Equal(t, DefaultMaxStep, engine.State().LastStep)

	engine.Tick(-time.Second)
	assert.InDelta(t, 0.08*DefaultMaxStep.Seconds(), engine.Progress(), 1e-9)
}

func TestProgressStaysBoundedForRandomGestures(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	engine := New(Config{ApproachRate: 0.4, ApproachGain: 0.6, DecayRate: 0.2, Threshold: 1}, nil)

	for i := 0; i < 5000; i++ {
		switch rng.Intn(4) {
		case 0:
			engine.Start()
		case 1:
			engine.Stop()
		case 2:
			if engine.Completed() {
				engine.Reset()
			}
		}
		engine.Tick(time.Duration(rng.Int63n(int64(200 * time.Millisecond))))
		progress := engine.Progress()
		require.GreaterOrEqual(t, progress, 0.0)
		require.LessOrEqual(t, progress, 1.0)
		if engine.Completed() {
			require.Equal(t, 1.0, progress)
		}
	}
}

func TestPartialThreshold(t *testing.T) {
	calls := 0
	engine := New(Config{ApproachRate: 0.5, Threshold: 0.5, MaxStep: time.Second}, func() { calls++ })
	engine.Start()

	engine.Tick(500 * time.Millisecond)
	assert.False(t, engine.Completed())
	engine.Tick(500 * time.Millisecond)
	assert.True(t, engine.Completed())
	assert.Equal(t, 1.0, engine.Progress())
	assert.Equal(t, 1, calls)
}

func TestPartialThresholdReportsFullProgressInFrames(t *testing.T) {
	engine := New(Config{ApproachRate: 0.5, Threshold: 0.5}, nil)
	engine.Start()

	ticks := 0
	for !engine.Completed() {
		require.Less(t, ticks, 100, "gesture never completed")
		engine.Tick(50 * time.Millisecond)
		ticks++
		if !engine.Completed() {
			assert.Less(t, engine.Progress(), 0.5)
		}
	}
	state := engine.State()
	assert.Equal(t, 1.0, state.Progress)
	assert.False(t, state.Holding)
	assert.InDelta(t, 20, ticks, 1)
}

func TestResetStartsFreshGesture(t *testing.T) {
	calls := 0
	engine := New(Config{ApproachRate: 2, MaxStep: time.Second}, func() { calls++ })
	engine.Start()
	engine.Tick(time.Second)
	require.True(t, engine.Completed())

	engine.Reset()
	state := engine.State()
	assert.Zero(t, state.Progress)
	assert.False(t, state.Completed)
	assert.False(t, state.Holding)

	assert.True(t, engine.Start())
	engine.Tick(time.Second)
	assert.Equal(t, 2, calls)
}

func TestHoldDurationWithoutGain(t *testing.T) {
	config := Config{ApproachRate: 0.25, Threshold: 1}
	assert.Equal(t, 4*time.Second, config.HoldDuration())
	assert.Zero(t, Config{}.HoldDuration())
}
