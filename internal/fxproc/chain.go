package fxproc

import "github.com/PostRockFTW/blooper5-sub000/internal/plug"

// Slot is one position in a track's effect chain: an effect instance, its
// current parameter values, and an active toggle.
type Slot struct {
	Effect plug.Effect
	Params plug.Params
	Active bool
}

// Chain runs effects in series. Inactive slots are skipped without resetting
// their state, so toggling an effect back on resumes its tail.
type Chain struct {
	slots []Slot
}

func NewChain(slots ...Slot) *Chain {
	return &Chain{slots: slots}
}

// Len returns the number of slots, active or not.
func (c *Chain) Len() int { return len(c.slots) }

// SetActive toggles a slot by index. Out-of-range indexes are ignored.
func (c *Chain) SetActive(i int, active bool) {
	if i >= 0 && i < len(c.slots) {
		c.slots[i].Active = active
	}
}

// SetParams replaces a slot's parameter values.
func (c *Chain) SetParams(i int, params plug.Params) {
	if i >= 0 && i < len(c.slots) {
		c.slots[i].Params = params
	}
}

// Process runs buf through every active slot in order.
func (c *Chain) Process(ctx plug.ProcessContext, buf []float32) []float32 {
	for _, s := range c.slots {
		if !s.Active {
			continue
		}
		buf = s.Effect.Process(ctx, buf, s.Params)
	}
	return buf
}

// Tail sums the active slots' tails: serial effects extend each other.
func (c *Chain) Tail(ctx plug.ProcessContext) int {
	total := 0
	for _, s := range c.slots {
		if !s.Active {
			continue
		}
		total += s.Effect.Tail(ctx, s.Params)
	}
	return total
}

// Reset clears every slot's internal state.
func (c *Chain) Reset() {
	for _, s := range c.slots {
		s.Effect.Reset()
	}
}
