package events

import "github.com/NateWesth/aleph-order-tracker/internal/models"

// Pipeline chains the normalizer and the bus: the write path hands it raw
// row changes, subscribers see canonical events.
type Pipeline struct {
	normalizer *Normalizer
	bus        *Bus
}

// NewPipeline creates new Pipeline instance
func NewPipeline(normalizer *Normalizer, bus *Bus) *Pipeline {
	return &Pipeline{normalizer: normalizer, bus: bus}
}

// PublishRaw normalizes raw and broadcasts it. Dropped payloads go nowhere.
func (p *Pipeline) PublishRaw(raw models.RawChange) {
	evt, ok := p.normalizer.Normalize(raw)
	if !ok {
		return
	}
	p.bus.Publish(evt)
}
