package vl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestCoordinator(t *testing.T, vl bool, count uint64) (*coordinator, *observer.ObservedLogs) {
	t.Helper()
	f := &fixture{word: 8}
	dt := i32()
	if vl {
		dt = f.vlString()
	}
	plan, err := Compile(dt, 8)
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	return newCoordinator(OpRead, "attribute \"x\"", plan, count, zap.New(core)), logs
}

func TestCoordinatorReclaimsOnce(t *testing.T) {
	c, logs := newTestCoordinator(t, true, 3)
	calls := 0
	reclaim := func() error { calls++; return nil }

	require.NoError(t, c.converted())
	require.NoError(t, c.finish(reclaim))
	assert.Equal(t, StateReclaimed, c.State())
	assert.Equal(t, 1, calls)

	err := c.finish(reclaim)
	assert.ErrorIs(t, err, ErrReclaimState)
	assert.Equal(t, 1, calls, "second reclaim refused")

	transitions := logs.FilterMessage("reclaim state").All()
	require.Len(t, transitions, 2)
	assert.Equal(t, "allocated", transitions[0].ContextMap()["from"])
	assert.Equal(t, "reclaimed", transitions[1].ContextMap()["to"])
}

func TestCoordinatorSkips(t *testing.T) {
	tests := []struct {
		name  string
		vl    bool
		count uint64
	}{
		{"no vlen data", false, 3},
		{"empty container", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCoordinator(t, tt.vl, tt.count)
			require.NoError(t, c.converted())
			require.NoError(t, c.finish(func() error {
				t.Fatal("reclaim must not run")
				return nil
			}))
			assert.Equal(t, StateSkipped, c.State())
		})
	}
}

func TestCoordinatorRefusesReclaimBeforeConversion(t *testing.T) {
	c, _ := newTestCoordinator(t, true, 1)
	err := c.finish(func() error { return nil })
	assert.ErrorIs(t, err, ErrReclaimState)
	assert.Equal(t, StateAllocated, c.State())

	require.NoError(t, c.converted())
	assert.ErrorIs(t, c.converted(), ErrReclaimState)
	assert.ErrorIs(t, c.abandon(func() error { return nil }), ErrReclaimState)
}

func TestCoordinatorAbandon(t *testing.T) {
	c, _ := newTestCoordinator(t, true, 1)
	calls := 0
	require.NoError(t, c.abandon(func() error { calls++; return nil }))
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateReclaimed, c.State())
}

func TestCoordinatorDowngradesFailure(t *testing.T) {
	c, logs := newTestCoordinator(t, true, 1)
	require.NoError(t, c.converted())
	require.NoError(t, c.finish(func() error { return errInjected }))

	warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warns, 1)
	assert.Equal(t, "reclaim failed", warns[0].Message)
	assert.Equal(t, errInjected.Error(), warns[0].ContextMap()["error"])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "skipped", StateSkipped.String())
	assert.Equal(t, "State(7)", State(7).String())
}
