// Package metrics implements the build's metrics side-channel: every
// step sends (group, name, value) samples over a channel to a single
// collector goroutine owned by the engine and joined during shutdown.
package metrics

import "github.com/metoffice/fab-go/internal/types"

// Collector owns the (group, name) -> value table and drains a Sample
// channel until it's closed.
type Collector struct {
	table map[string]map[string]float64
	done  chan struct{}
}

// NewCollector starts a goroutine draining samples from ch until it's
// closed, then signals completion via Wait.
func NewCollector(ch <-chan types.Sample) *Collector {
	c := &Collector{
		table: map[string]map[string]float64{},
		done:  make(chan struct{}),
	}
	go c.run(ch)
	return c
}

func (c *Collector) run(ch <-chan types.Sample) {
	defer close(c.done)
	for sample := range ch {
		group, ok := c.table[sample.Group]
		if !ok {
			group = map[string]float64{}
			c.table[sample.Group] = group
		}
		group[sample.Name] += sample.Value
	}
}

// Wait blocks until ch has been closed and every sample drained, then
// returns the final snapshot.
func (c *Collector) Wait() map[string]map[string]float64 {
	<-c.done
	return c.table
}

// Send is a convenience wrapper for a step to emit one sample. It returns
// immediately when ch is nil (metrics are optional); on a non-nil channel
// it blocks until the sample is accepted.
func Send(ch chan<- types.Sample, group, name string, value float64) {
	if ch == nil {
		return
	}
	ch <- types.Sample{Group: group, Name: name, Value: value}
}
