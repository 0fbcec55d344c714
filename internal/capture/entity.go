package capture

import (
	"fmt"

	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// SpawnEntity records an entity entering the world. Subscribers veto
// individual spawns by filtering them out of the SpawnEntityEvent.
type SpawnEntity struct {
	batchable
	noAbsorb
	noPostProcess

	Entity    ir.Entity
	SpawnType string
}

func (*SpawnEntity) Type() TransactionType { return TypeSpawnEntity }
func (s *SpawnEntity) World() ir.WorldKey { return s.Entity.World }
func (*SpawnEntity) Variant() string { return "spawn_entity" }

func (s *SpawnEntity) String() string {
	return fmt.Sprintf("SpawnEntity %s %s at %s (%s)", s.Entity.World, s.Entity, s.Entity.Pos, s.SpawnType)
}

func (s *SpawnEntity) mutateFrame(f *cause.Frame, _ event.Event) {
	if s.SpawnType != "" {
		f.AddContext(cause.KeySpawnType, s.SpawnType)
	}
}

func (s *SpawnEntity) generateEvent(c cause.Cause, group []Transaction) (event.Event, bool) {
	members, ok := membersOf[*SpawnEntity](group)
	if !ok {
		return nil, false
	}
	entities := make([]ir.Entity, len(members))
	for i, m := range members {
		entities[i] = m.Entity.Clone()
	}
	return event.NewSpawnEntityEvent(c, s.World(), entities), true
}

// rejected reports the members whose entity a subscriber filtered out.
func (*SpawnEntity) rejected(ev event.Event, group []Transaction) []int {
	spawn, ok := ev.(*event.SpawnEntityEvent)
	if !ok {
		return nil
	}
	var out []int
	for i, tx := range group {
		if m, ok := tx.(*SpawnEntity); ok && !spawn.Contains(m.Entity.ID) {
			out = append(out, i)
		}
	}
	return out
}

func (s *SpawnEntity) restore(w world.Accessor) error {
	_, err := w.RemoveEntity(s.Entity.ID)
	return err
}

func (s *SpawnEntity) record() map[string]any {
	return map[string]any{"entity": s.Entity, "spawn_type": s.SpawnType}
}

// EntityPerformingDrops records an entity dying and producing drops. The
// drops are logged in its EffectEntityDrops chain. Restoring it respawns
// the entity from its saved state.
type EntityPerformingDrops struct {
	noPostProcess

	Entity           ir.Entity
	LastDamageSource string
}

func (*EntityPerformingDrops) Type() TransactionType { return TypeEntityDeathDrops }
func (d *EntityPerformingDrops) World() ir.WorldKey { return d.Entity.World }
func (*EntityPerformingDrops) Variant() string { return "entity_performing_drops" }
func (*EntityPerformingDrops) Unbatchable() bool { return true }

func (d *EntityPerformingDrops) String() string {
	return fmt.Sprintf("EntityPerformingDrops %s %s", d.Entity.World, d.Entity)
}

// absorb folds a repeated drop request for the same entity.
func (d *EntityPerformingDrops) absorb(next Transaction) bool {
	n, ok := next.(*EntityPerformingDrops)
	return ok && n.Entity.ID == d.Entity.ID
}

func (d *EntityPerformingDrops) mutateFrame(f *cause.Frame, _ event.Event) {
	f.PushCause(d.Entity)
	if d.LastDamageSource != "" {
		f.AddContext(cause.KeyLastDamageSource, d.LastDamageSource)
	}
}

func (d *EntityPerformingDrops) generateEvent(c cause.Cause, _ []Transaction) (event.Event, bool) {
	return &event.HarvestEntityEvent{Base: event.NewBase(c), Entity: d.Entity.Clone()}, true
}

func (*EntityPerformingDrops) rejected(event.Event, []Transaction) []int {
	return nil
}

func (d *EntityPerformingDrops) restore(w world.Accessor) error {
	return w.SpawnEntity(d.Entity.Clone())
}

func (d *EntityPerformingDrops) record() map[string]any {
	return map[string]any{"entity": d.Entity, "last_damage_source": d.LastDamageSource}
}
