package vl

import (
	"fmt"

	"go.uber.org/zap"
)

// State is the position of one operation's native buffer in its
// ownership hand-off.
type State uint8

const (
	// StateAllocated: the buffer exists and may hold native-owned payloads.
	StateAllocated State = iota
	// StateConverted: every element was converted; payloads may now go.
	StateConverted
	// StateReclaimed: the reclaim primitive ran (successfully or not).
	StateReclaimed
	// StateSkipped: nothing to reclaim.
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateAllocated:
		return "allocated"
	case StateConverted:
		return "converted"
	case StateReclaimed:
		return "reclaimed"
	case StateSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// coordinator decides whether an operation's buffer must be reclaimed and
// makes sure it happens at most once, after conversion.
type coordinator struct {
	op     Op
	target string
	state  State
	// needed is true iff the element type contains VL data and the buffer
	// holds at least one element.
	needed bool
	log    *zap.Logger
}

func newCoordinator(op Op, target string, plan *Plan, count uint64, log *zap.Logger) *coordinator {
	return &coordinator{
		op:     op,
		target: target,
		needed: plan.ContainsVariableLength() && count > 0,
		log:    log,
	}
}

// State returns the current state.
func (c *coordinator) State() State { return c.state }

func (c *coordinator) move(to State) error {
	legal := false
	switch c.state {
	case StateAllocated:
		legal = to == StateConverted || to == StateReclaimed || to == StateSkipped
	case StateConverted:
		legal = to == StateReclaimed || to == StateSkipped
	}
	if !legal {
		return newError(c.op, KindReclaimState).
			Detail("%s -> %s on %s", c.state, to, c.target).Build()
	}
	c.log.Debug("reclaim state",
		zap.String("op", string(c.op)),
		zap.String("target", c.target),
		zap.Stringer("from", c.state),
		zap.Stringer("to", to))
	c.state = to
	return nil
}

// converted records that every element has been copied out of (or into)
// the buffer.
func (c *coordinator) converted() error {
	return c.move(StateConverted)
}

// finish runs reclaim if it is needed. A failing reclaim is logged and
// swallowed: the converted data is already valid.
func (c *coordinator) finish(reclaim func() error) error {
	if c.state != StateConverted {
		return newError(c.op, KindReclaimState).
			Detail("reclaim before conversion (%s) on %s", c.state, c.target).Build()
	}
	return c.end(reclaim)
}

// abandon reclaims the buffer of an operation whose conversion failed
// after the native side had already filled it.
func (c *coordinator) abandon(reclaim func() error) error {
	if c.state != StateAllocated {
		return newError(c.op, KindReclaimState).
			Detail("abandon in state %s on %s", c.state, c.target).Build()
	}
	return c.end(reclaim)
}

func (c *coordinator) end(reclaim func() error) error {
	if !c.needed {
		return c.move(StateSkipped)
	}
	if err := c.move(StateReclaimed); err != nil {
		return err
	}
	if err := reclaim(); err != nil {
		c.log.Warn("reclaim failed",
			zap.String("op", string(c.op)),
			zap.String("target", c.target),
			zap.Error(err))
	}
	return nil
}
