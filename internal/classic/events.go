package classic

import (
	"mevAMM/internal/model"
)

func (p *Pair) emit(name string, data interface{}) {
	p.sequence++
	p.journal = append(p.journal, model.PoolEvent{
		Pool:      p.address.Hex(),
		Variant:   model.VariantClassic,
		Sequence:  p.sequence,
		EventName: name,
		Timestamp: uint64(p.now().Unix()),
		Decoded:   data,
	})
}

func (p *Pair) emitSync() {
	reserve0, reserve1 := p.reserves.Get()
	p.emit(model.EventSync, model.SyncEventData{
		Reserve0: reserve0.Dec(),
		Reserve1: reserve1.Dec(),
	})
}

// Events returns the journaled events not yet drained.
func (p *Pair) Events() []model.PoolEvent {
	out := make([]model.PoolEvent, len(p.journal))
	copy(out, p.journal)
	return out
}

// DrainEvents returns and clears the journaled events.
func (p *Pair) DrainEvents() []model.PoolEvent {
	out := p.journal
	p.journal = nil
	return out
}
