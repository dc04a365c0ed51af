package weighted

import "mevAMM/internal/model"

func (p *Pool) emit(name string, data interface{}) {
	p.sequence++
	p.journal = append(p.journal, model.PoolEvent{
		Pool:      p.address.Hex(),
		Variant:   model.VariantWeighted,
		Sequence:  p.sequence,
		EventName: name,
		Timestamp: uint64(p.now().Unix()),
		Decoded:   data,
	})
}

// DrainEvents returns and clears the journaled events.
func (p *Pool) DrainEvents() []model.PoolEvent {
	out := p.journal
	p.journal = nil
	return out
}
