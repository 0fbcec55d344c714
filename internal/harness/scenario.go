package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines an end-to-end capture scenario.
// Scenarios build a world, run a flow of capture windows against it and
// assert on the resulting window trace and final world.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Worlds lists the world keys to create. The first one is the default
	// world for steps and assertions that omit it. Defaults to
	// minecraft:overworld.
	Worlds []string `yaml:"worlds,omitempty"`

	// Policies lists CUE policy files to install on the bus.
	// Paths are relative to the scenario file location.
	Policies []string `yaml:"policies,omitempty"`

	// Policy is an inline CUE policy, installed after Policies.
	Policy string `yaml:"policy,omitempty"`

	// MaxNodes is the per-window node quota. Zero keeps the engine default.
	MaxNodes int `yaml:"max_nodes,omitempty"`

	// Setup contains blocks and entities written straight into the world
	// before the flow. Nothing in Setup is captured.
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Flow contains the capture windows, run in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the window trace and the final world.
	Assertions []Assertion `yaml:"assertions"`
}

// SetupStep places a block or an entity. Exactly one of State and Entity
// is set.
type SetupStep struct {
	World string `yaml:"world,omitempty"`
	Pos   []int  `yaml:"pos,omitempty"`
	State string `yaml:"state,omitempty"`

	// Tile installs a tile entity at Pos alongside the block.
	Tile *TileSpec `yaml:"tile,omitempty"`

	Entity *EntitySpec `yaml:"entity,omitempty"`
}

// TileSpec describes a tile entity.
type TileSpec struct {
	Type string                 `yaml:"type"`
	Data map[string]interface{} `yaml:"data,omitempty"`
}

// EntitySpec describes an entity.
type EntitySpec struct {
	ID    string                 `yaml:"id"`
	Type  string                 `yaml:"type"`
	World string                 `yaml:"world,omitempty"`
	Pos   []int                  `yaml:"pos"`
	Data  map[string]interface{} `yaml:"data,omitempty"`
}

// FlowStep is one capture window.
type FlowStep struct {
	// Window names the window. It is the operation name in the trace and
	// the journal, and how assertions refer to the window.
	Window string `yaml:"window"`

	// Cause is pushed as the root cause of the window.
	Cause string `yaml:"cause,omitempty"`

	// Ops run in order inside the window.
	Ops []OpStep `yaml:"ops"`

	// Expect specifies the expected window outcome.
	// If nil, no validation is performed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// OpStep is one pipeline operation. Which fields apply depends on Op.
type OpStep struct {
	Op    string `yaml:"op"`
	World string `yaml:"world,omitempty"`
	Pos   []int  `yaml:"pos,omitempty"`
	State string `yaml:"state,omitempty"`

	// Notify sends neighbor notifications for set_block. Defaults to true.
	Notify *bool `yaml:"notify,omitempty"`

	Drops  bool `yaml:"drops,omitempty"`
	Radius int  `yaml:"radius,omitempty"`

	Entity    *EntitySpec `yaml:"entity,omitempty"`
	SpawnType string      `yaml:"spawn_type,omitempty"`

	ID           string `yaml:"id,omitempty"`
	DamageSource string `yaml:"damage_source,omitempty"`

	Action string `yaml:"action,omitempty"`
	Param  int    `yaml:"param,omitempty"`

	Data map[string]interface{} `yaml:"data,omitempty"`
}

// Operation names.
const (
	OpSetBlock    = "set_block"
	OpBreakBlock  = "break_block"
	OpExplode     = "explode"
	OpSetTileData = "set_tile_data"
	OpSpawn       = "spawn"
	OpKill        = "kill"
	OpBlockEvent  = "block_event"
)

// ExpectClause specifies expected window behavior.
type ExpectClause struct {
	// Outcome is the expected window outcome (committed, rolled_back,
	// aborted, failed).
	Outcome string `yaml:"outcome"`

	// Groups is the expected number of event groups, if set.
	Groups *int `yaml:"groups,omitempty"`

	// Restored is the expected restore order, if set.
	Restored *[]int `yaml:"restored,omitempty"`

	// Error is the expected runtime error code, e.g. QUOTA_EXCEEDED.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final world.
type Assertion struct {
	// Type specifies the assertion type:
	// - "block_state": the block at pos
	// - "tile_entity": the tile entity at pos ("none" for absent)
	// - "entity_count": the number of entities in a world
	// - "window_outcome": a window's outcome
	// - "group_outcomes": a window's group outcomes, in batch order
	// - "group_types": a window's group transaction types, in batch order
	// - "restore_order": a window's restored node IDs, in restore order
	// - "rule_hits": how often a policy rule applied
	// - "event_count": how often an event was posted
	Type string `yaml:"type"`

	// Window names the flow step (used by window_outcome, group_outcomes,
	// group_types, restore_order).
	Window string `yaml:"window,omitempty"`

	World string `yaml:"world,omitempty"`
	Pos   []int  `yaml:"pos,omitempty"`
	State string `yaml:"state,omitempty"`
	Tile  string `yaml:"tile,omitempty"`

	Outcome  string   `yaml:"outcome,omitempty"`
	Outcomes []string `yaml:"outcomes,omitempty"`
	Types    []string `yaml:"types,omitempty"`
	Restored []int    `yaml:"restored,omitempty"`

	Rule  string `yaml:"rule,omitempty"`
	Event string `yaml:"event,omitempty"`

	// Count is the expected number (used by entity_count, rule_hits,
	// event_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertBlockState    = "block_state"
	AssertTileEntity    = "tile_entity"
	AssertEntityCount   = "entity_count"
	AssertWindowOutcome = "window_outcome"
	AssertGroupOutcomes = "group_outcomes"
	AssertGroupTypes    = "group_types"
	AssertRestoreOrder  = "restore_order"
	AssertRuleHits      = "rule_hits"
	AssertEventCount    = "event_count"
)

// NoTile is the tile_entity value that asserts there is no tile entity.
const NoTile = "none"

// LoadScenario reads and parses a scenario YAML file. Policy paths are
// resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving policy paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve policy paths relative to base path BEFORE validation
	for i, p := range scenario.Policies {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Policies[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// Validate checks that required fields are present and valid.
func (s *Scenario) Validate() error {
	return validateScenario(s)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.MaxNodes < 0 {
		return fmt.Errorf("max_nodes must be non-negative")
	}

	for _, p := range s.Policies {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("policy file not found: %s", p)
		}
	}

	for i, step := range s.Setup {
		if err := validateSetup(i, step); err != nil {
			return err
		}
	}

	windows := make(map[string]bool, len(s.Flow))
	for i, step := range s.Flow {
		if step.Window == "" {
			return fmt.Errorf("flow[%d]: window is required", i)
		}
		if windows[step.Window] {
			return fmt.Errorf("flow[%d]: duplicate window %q", i, step.Window)
		}
		windows[step.Window] = true
		if len(step.Ops) == 0 {
			return fmt.Errorf("flow[%d]: ops list is required and must be non-empty", i)
		}
		for j, op := range step.Ops {
			if err := validateOp(op); err != nil {
				return fmt.Errorf("flow[%d].ops[%d]: %w", i, j, err)
			}
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d].expect: outcome is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, windows); err != nil {
			return err
		}
	}

	return nil
}

func validateSetup(i int, step SetupStep) error {
	switch {
	case step.Entity != nil && step.State != "":
		return fmt.Errorf("setup[%d]: state and entity are mutually exclusive", i)
	case step.Entity != nil:
		return validateEntity(fmt.Sprintf("setup[%d].entity", i), step.Entity)
	case step.State == "":
		return fmt.Errorf("setup[%d]: state or entity is required", i)
	case len(step.Pos) != 3:
		return fmt.Errorf("setup[%d]: pos must have 3 coordinates", i)
	case step.Tile != nil && step.Tile.Type == "":
		return fmt.Errorf("setup[%d].tile: type is required", i)
	}
	return nil
}

func validateEntity(where string, e *EntitySpec) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%s: id is required", where)
	case e.Type == "":
		return fmt.Errorf("%s: type is required", where)
	case len(e.Pos) != 3:
		return fmt.Errorf("%s: pos must have 3 coordinates", where)
	}
	return nil
}

func validateOp(op OpStep) error {
	needPos := func() error {
		if len(op.Pos) != 3 {
			return fmt.Errorf("%s: pos must have 3 coordinates", op.Op)
		}
		return nil
	}

	switch op.Op {
	case OpSetBlock:
		if op.State == "" {
			return fmt.Errorf("set_block: state is required")
		}
		return needPos()
	case OpBreakBlock:
		return needPos()
	case OpExplode:
		if op.Radius < 0 {
			return fmt.Errorf("explode: radius must be non-negative")
		}
		return needPos()
	case OpSetTileData:
		return needPos()
	case OpSpawn:
		if op.Entity == nil {
			return fmt.Errorf("spawn: entity is required")
		}
		return validateEntity("spawn.entity", op.Entity)
	case OpKill:
		if op.ID == "" {
			return fmt.Errorf("kill: id is required")
		}
	case OpBlockEvent:
		if op.Action == "" {
			return fmt.Errorf("block_event: action is required")
		}
		return needPos()
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, windows map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needWindow := func() error {
		if a.Window == "" {
			return fmt.Errorf("assertions[%d]: window is required for %s", index, a.Type)
		}
		if !windows[a.Window] {
			return fmt.Errorf("assertions[%d]: unknown window %q", index, a.Window)
		}
		return nil
	}

	switch a.Type {
	case AssertBlockState:
		if len(a.Pos) != 3 {
			return fmt.Errorf("assertions[%d]: pos must have 3 coordinates for block_state", index)
		}
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for block_state", index)
		}
	case AssertTileEntity:
		if len(a.Pos) != 3 {
			return fmt.Errorf("assertions[%d]: pos must have 3 coordinates for tile_entity", index)
		}
		if a.Tile == "" {
			return fmt.Errorf("assertions[%d]: tile is required for tile_entity (use %q for none)", index, NoTile)
		}
	case AssertEntityCount, AssertRuleHits, AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
		if a.Type == AssertRuleHits && a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for rule_hits", index)
		}
		if a.Type == AssertEventCount && a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
	case AssertWindowOutcome:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for window_outcome", index)
		}
		return needWindow()
	case AssertGroupOutcomes, AssertGroupTypes, AssertRestoreOrder:
		return needWindow()
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
