package ir

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultNamespace is assumed for world keys and block states written
// without one.
const DefaultNamespace = "minecraft"

// WorldKey identifies a simulated world, e.g. "minecraft:overworld".
// Two mutations in different worlds never share an event.
type WorldKey string

// ParseWorldKey normalizes s to NFC, lowercases it and adds the default
// namespace when none is given.
func ParseWorldKey(s string) (WorldKey, error) {
	ns, path, err := splitResourceKey(s)
	if err != nil {
		return "", fmt.Errorf("world key %q: %w", s, err)
	}
	return WorldKey(ns + ":" + path), nil
}

// MustWorldKey is like ParseWorldKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustWorldKey(s string) WorldKey {
	k, err := ParseWorldKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Namespace returns the part before the colon.
func (k WorldKey) Namespace() string {
	ns, _, _ := strings.Cut(string(k), ":")
	return ns
}

// Path returns the part after the colon.
func (k WorldKey) Path() string {
	_, path, _ := strings.Cut(string(k), ":")
	return path
}

func splitResourceKey(s string) (string, string, error) {
	s = strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
	if s == "" {
		return "", "", fmt.Errorf("empty key")
	}
	ns, path, ok := strings.Cut(s, ":")
	if !ok {
		ns, path = DefaultNamespace, s
	}
	if ns == "" || path == "" {
		return "", "", fmt.Errorf("namespace and path must be non-empty")
	}
	if !validKeyPart(ns, false) {
		return "", "", fmt.Errorf("invalid namespace %q", ns)
	}
	if !validKeyPart(path, true) {
		return "", "", fmt.Errorf("invalid path %q", path)
	}
	return ns, path, nil
}

func validKeyPart(s string, allowSlash bool) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		case r == '/' && allowSlash:
		default:
			return false
		}
	}
	return true
}

// BlockPos is an integer block coordinate.
type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Pos is shorthand for BlockPos{X: x, Y: y, Z: z}.
func Pos(x, y, z int) BlockPos {
	return BlockPos{X: x, Y: y, Z: z}
}

func (p BlockPos) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Neighbors returns the six adjacent positions in notification order:
// west, east, down, up, north, south.
func (p BlockPos) Neighbors() []BlockPos {
	return []BlockPos{
		{p.X - 1, p.Y, p.Z},
		{p.X + 1, p.Y, p.Z},
		{p.X, p.Y - 1, p.Z},
		{p.X, p.Y + 1, p.Z},
		{p.X, p.Y, p.Z - 1},
		{p.X, p.Y, p.Z + 1},
	}
}

// BlockState is a block type plus optional properties, e.g.
// "minecraft:furnace[facing=north]".
type BlockState string

// Air is the empty block.
const Air BlockState = "minecraft:air"

// ParseBlockState normalizes the block type part of s the same way world
// keys are normalized. Properties are kept verbatim.
func ParseBlockState(s string) (BlockState, error) {
	typ, props, hasProps := strings.Cut(strings.TrimSpace(s), "[")
	ns, path, err := splitResourceKey(typ)
	if err != nil {
		return "", fmt.Errorf("block state %q: %w", s, err)
	}
	if !hasProps {
		return BlockState(ns + ":" + path), nil
	}
	if !strings.HasSuffix(props, "]") {
		return "", fmt.Errorf("block state %q: unterminated property list", s)
	}
	return BlockState(ns + ":" + path + "[" + props), nil
}

// MustBlockState is like ParseBlockState but panics on error.
func MustBlockState(s string) BlockState {
	st, err := ParseBlockState(s)
	if err != nil {
		panic(err)
	}
	return st
}

// BlockType strips the property list.
func (s BlockState) BlockType() string {
	typ, _, _ := strings.Cut(string(s), "[")
	return typ
}

// IsAir reports whether the state is the empty block. The zero value counts
// as air.
func (s BlockState) IsAir() bool {
	return s == "" || s.BlockType() == string(Air)
}

// TileEntity is the saved form of a block entity.
type TileEntity struct {
	Type string   `json:"type"`
	Pos  BlockPos `json:"pos"`
	Data Compound `json:"data,omitempty"`
}

// Clone returns a deep copy. A nil tile entity clones to nil.
func (t *TileEntity) Clone() *TileEntity {
	if t == nil {
		return nil
	}
	return &TileEntity{Type: t.Type, Pos: t.Pos, Data: t.Data.Clone()}
}

func (t TileEntity) toMap() map[string]any {
	m := map[string]any{
		"type": t.Type,
		"pos":  t.Pos,
	}
	if len(t.Data) > 0 {
		m["data"] = t.Data
	}
	return m
}

// Entity is the saved form of a mobile entity. ID is stable for the life of
// the entity and survives a restore.
type Entity struct {
	ID    string   `json:"id"`
	Type  string   `json:"type"`
	World WorldKey `json:"world"`
	Pos   BlockPos `json:"pos"`
	Data  Compound `json:"data,omitempty"`
}

func (e Entity) String() string {
	return e.Type + "#" + e.ID
}

// Clone returns a deep copy.
func (e Entity) Clone() Entity {
	e.Data = e.Data.Clone()
	return e
}

func (e Entity) toMap() map[string]any {
	m := map[string]any{
		"id":    e.ID,
		"type":  e.Type,
		"world": e.World,
		"pos":   e.Pos,
	}
	if len(e.Data) > 0 {
		m["data"] = e.Data
	}
	return m
}

// BlockSnapshot captures everything needed to put a position back the way
// it was: the block state and, if present, its tile entity.
type BlockSnapshot struct {
	World WorldKey    `json:"world"`
	Pos   BlockPos    `json:"pos"`
	State BlockState  `json:"state"`
	Tile  *TileEntity `json:"tile,omitempty"`
}

// Clone returns a deep copy.
func (s BlockSnapshot) Clone() BlockSnapshot {
	s.Tile = s.Tile.Clone()
	return s
}

// WithState returns a copy of s carrying a different state and no tile.
func (s BlockSnapshot) WithState(state BlockState) BlockSnapshot {
	return BlockSnapshot{World: s.World, Pos: s.Pos, State: state}
}

func (s BlockSnapshot) toMap() map[string]any {
	state := s.State
	if state == "" {
		state = Air
	}
	m := map[string]any{
		"world": s.World,
		"pos":   s.Pos,
		"state": state,
	}
	if s.Tile != nil {
		m["tile"] = *s.Tile
	}
	return m
}
