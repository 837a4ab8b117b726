package mapbridge

import "github.com/quickserve/driver-tracking/internal/api/metrics"

// commandBuffer retains the latest command per layer while the rendering
// sink is not yet ready. Flush hands over the pending set exactly once, in
// first-seen layer order: at-most-once delivery of the latest position per
// marker id, never a replay of every historical sample.
type commandBuffer struct {
	order    []string
	pending  map[string]command
	removals []command
}

func newCommandBuffer() *commandBuffer {
	return &commandBuffer{pending: make(map[string]command)}
}

// Add records a command, coalescing onto any earlier command for the same layer.
func (b *commandBuffer) Add(c command) {
	key, coalesce := c.layerKey()
	if !coalesce {
		if c.Type == cmdRemoveLayer {
			// A removal cancels whatever was pending for the layer.
			delete(b.pending, "marker:"+c.ID)
			delete(b.pending, "polyline:"+c.ID)
			b.removals = append(b.removals, c)
		}
		// Speech commands are not retained: speaking to a sink that was
		// never ready would be stale by flush time.
		return
	}

	if _, seen := b.pending[key]; !seen {
		b.order = append(b.order, key)
	}
	b.pending[key] = c
	metrics.BridgeQueueDepth.Set(float64(len(b.pending)))
}

// Flush returns the retained commands and resets the buffer.
func (b *commandBuffer) Flush() []command {
	out := make([]command, 0, len(b.removals)+len(b.pending))
	out = append(out, b.removals...)
	for _, key := range b.order {
		if c, ok := b.pending[key]; ok {
			out = append(out, c)
		}
	}

	b.order = nil
	b.pending = make(map[string]command)
	b.removals = nil
	metrics.BridgeQueueDepth.Set(0)
	return out
}

// Len reports the number of retained commands.
func (b *commandBuffer) Len() int {
	return len(b.pending) + len(b.removals)
}
