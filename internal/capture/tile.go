package capture

import (
	"fmt"

	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// restoreTile puts the tile entity of snap back without touching the block
// state.
func restoreTile(w world.Accessor, snap ir.BlockSnapshot) error {
	if snap.Tile == nil {
		_, err := w.RemoveTileEntity(snap.World, snap.Pos)
		return err
	}
	t := snap.Tile.Clone()
	t.Pos = snap.Pos
	return w.SetTileEntity(snap.World, *t)
}

func samePosition(a, b ir.BlockSnapshot) bool {
	return a.World == b.World && a.Pos == b.Pos
}

// AddTileEntity records a tile entity being installed. Original holds the
// tile entity that was there before, if any.
type AddTileEntity struct {
	batchable
	noFrame
	noPostProcess
	blockReceipt

	Original ir.BlockSnapshot
	Added    ir.TileEntity
}

func (*AddTileEntity) Type() TransactionType { return TypeBlock }
func (a *AddTileEntity) World() ir.WorldKey { return a.Original.World }
func (*AddTileEntity) Variant() string { return "add_tile_entity" }

func (a *AddTileEntity) String() string {
	return fmt.Sprintf("AddTileEntity %s %s %s", a.Original.World, a.Original.Pos, describeTile(&a.Added))
}

// absorb folds a repeated addition at the same position. The latest data
// wins.
func (a *AddTileEntity) absorb(next Transaction) bool {
	n, ok := next.(*AddTileEntity)
	if !ok || !samePosition(a.Original, n.Original) {
		return false
	}
	a.Added = *n.Added.Clone()
	return true
}

func (a *AddTileEntity) newReceipt() *event.BlockTransaction {
	final := a.Original.Clone()
	final.Tile = a.Added.Clone()
	return a.issue(a.Original, final, event.OpModify)
}

func (a *AddTileEntity) generateEvent(cs cause.Cause, group []Transaction) (event.Event, bool) {
	return generateBlockEvent(cs, a.World(), group)
}

func (*AddTileEntity) rejected(_ event.Event, group []Transaction) []int {
	return blockRejected(group)
}

func (a *AddTileEntity) restore(w world.Accessor) error {
	return restoreTile(w, a.Original)
}

func (a *AddTileEntity) record() map[string]any {
	return map[string]any{"original": a.Original, "added": a.Added}
}

// RemoveTileEntity records a tile entity being removed. Original.Tile is
// the removed tile entity and is never nil.
type RemoveTileEntity struct {
	batchable
	noFrame
	noPostProcess
	blockReceipt

	Original ir.BlockSnapshot
}

func (*RemoveTileEntity) Type() TransactionType { return TypeBlock }
func (r *RemoveTileEntity) World() ir.WorldKey { return r.Original.World }
func (*RemoveTileEntity) Variant() string { return "remove_tile_entity" }

func (r *RemoveTileEntity) String() string {
	return fmt.Sprintf("RemoveTileEntity %s %s %s", r.Original.World, r.Original.Pos, describeTile(r.Original.Tile))
}

// absorb folds a repeated removal of the same position.
func (r *RemoveTileEntity) absorb(next Transaction) bool {
	n, ok := next.(*RemoveTileEntity)
	return ok && samePosition(r.Original, n.Original)
}

func (r *RemoveTileEntity) newReceipt() *event.BlockTransaction {
	final := r.Original.Clone()
	final.Tile = nil
	return r.issue(r.Original, final, event.OpModify)
}

func (r *RemoveTileEntity) generateEvent(cs cause.Cause, group []Transaction) (event.Event, bool) {
	return generateBlockEvent(cs, r.World(), group)
}

func (*RemoveTileEntity) rejected(_ event.Event, group []Transaction) []int {
	return blockRejected(group)
}

func (r *RemoveTileEntity) restore(w world.Accessor) error {
	return restoreTile(w, r.Original)
}

func (r *RemoveTileEntity) record() map[string]any {
	return map[string]any{"original": r.Original}
}

// ReplaceTileEntity records one tile entity replacing another (or none).
type ReplaceTileEntity struct {
	batchable
	noFrame
	noPostProcess
	blockReceipt

	Original ir.BlockSnapshot
	Proposed ir.TileEntity
}

func (*ReplaceTileEntity) Type() TransactionType { return TypeBlock }
func (r *ReplaceTileEntity) World() ir.WorldKey { return r.Original.World }
func (*ReplaceTileEntity) Variant() string { return "replace_tile_entity" }

func (r *ReplaceTileEntity) String() string {
	return fmt.Sprintf("ReplaceTileEntity %s %s %s -> %s",
		r.Original.World, r.Original.Pos, describeTile(r.Original.Tile), describeTile(&r.Proposed))
}

// absorb folds a repeated replacement at the same position, keeping the
// first original and the latest proposal.
func (r *ReplaceTileEntity) absorb(next Transaction) bool {
	n, ok := next.(*ReplaceTileEntity)
	if !ok || !samePosition(r.Original, n.Original) {
		return false
	}
	r.Proposed = *n.Proposed.Clone()
	return true
}

func (r *ReplaceTileEntity) newReceipt() *event.BlockTransaction {
	final := r.Original.Clone()
	final.Tile = r.Proposed.Clone()
	return r.issue(r.Original, final, event.OpModify)
}

func (r *ReplaceTileEntity) generateEvent(cs cause.Cause, group []Transaction) (event.Event, bool) {
	return generateBlockEvent(cs, r.World(), group)
}

func (*ReplaceTileEntity) rejected(_ event.Event, group []Transaction) []int {
	return blockRejected(group)
}

func (r *ReplaceTileEntity) restore(w world.Accessor) error {
	return restoreTile(w, r.Original)
}

func (r *ReplaceTileEntity) record() map[string]any {
	return map[string]any{"original": r.Original, "proposed": r.Proposed}
}
