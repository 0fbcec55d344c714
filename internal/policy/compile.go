package policy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// Compile parses a policy from CUE source. filename is used in error
// positions only.
func Compile(src []byte, filename string) (*Policy, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return compileValue(ctx, v)
}

// LoadFile reads and compiles a single policy file.
func LoadFile(path string) (*Policy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return Compile(src, path)
}

// LoadDir compiles every CUE file of the package in dir.
func LoadDir(dir string) (*Policy, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load policy dir %s: no CUE instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	return compileValue(ctx, ctx.BuildInstance(inst))
}

// compileValue unifies v with the schema and reads every rule.
func compileValue(ctx *cue.Context, v cue.Value) (*Policy, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("policy schema: %w", err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Policy{hits: map[string]int{}}
	rulesVal := unified.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return p, nil
	}
	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		r, err := CompileRule(strings.Trim(iter.Label(), `"`), iter.Value())
		if err != nil {
			return nil, err
		}
		p.Rules = append(p.Rules, *r)
	}

	if errs := Validate(p.Rules); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return p, nil
}

// CompileRule reads one rule struct. The value must already satisfy #Rule.
func CompileRule(name string, v cue.Value) (*Rule, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	r := &Rule{Name: name, Order: event.OrderDefault, Line: v.Pos().Line()}

	var err error
	if r.Event, err = requiredString(v, "event"); err != nil {
		return nil, err
	}
	action, err := requiredString(v, "action")
	if err != nil {
		return nil, err
	}
	r.Action = Action(action)

	world, ok, err := optionalString(v, "world")
	if err != nil {
		return nil, err
	}
	if ok {
		key, err := ir.ParseWorldKey(world)
		if err != nil {
			return nil, &CompileError{Field: "world", Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("world")).Pos()}
		}
		r.World = key
	}

	block, ok, err := optionalString(v, "block")
	if err != nil {
		return nil, err
	}
	if ok {
		parsed, err := ir.ParseBlockState(block)
		if err != nil {
			return nil, &CompileError{Field: "block", Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("block")).Pos()}
		}
		r.Block = parsed.BlockType()
	}
	if r.Entity, _, err = optionalString(v, "entity"); err != nil {
		return nil, err
	}
	op, _, err := optionalString(v, "operation")
	if err != nil {
		return nil, err
	}
	r.Operation = event.Operation(op)

	state, ok, err := optionalString(v, "state")
	if err != nil {
		return nil, err
	}
	if ok {
		parsed, err := ir.ParseBlockState(state)
		if err != nil {
			return nil, &CompileError{Field: "state", Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("state")).Pos()}
		}
		r.State = parsed
	}

	order, ok, err := optionalString(v, "order")
	if err != nil {
		return nil, err
	}
	if ok {
		r.Order = orders[order]
	}

	return r, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	s, ok, err := optionalString(v, field)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	return s, nil
}

// optionalString reads a concrete string field. Absent and non-concrete
// fields report ok=false.
func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() || !fv.IsConcrete() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
