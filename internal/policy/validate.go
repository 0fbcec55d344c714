package policy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/SpongePowered/Common-sub001/internal/event"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownEvent       = "E201" // event has no policy support
	ErrUnsupportedAction  = "E202" // action does not apply to the event
	ErrMissingState       = "E203" // replace without a state
	ErrMatcherNotAllowed  = "E204" // matcher does not apply to the event
	ErrStateNotAllowed    = "E205" // state set on a non-replace rule
	ErrDuplicateRule      = "E206" // two rules with the same name
	ErrEmptyRuleName      = "E207" // rule name is blank
	ErrReplaceWithoutTest = "E208" // replace rule matches every transaction
)

// ValidationError represents a policy rule error.
type ValidationError struct {
	Rule    string `json:"rule"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: rule %q: %s: %s", e.Code, e.Line, e.Rule, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] rule %q: %s: %s", e.Code, e.Rule, e.Field, e.Message)
}

// ValidationErrors is every error found in one policy.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks cross-field rules the schema cannot express.
// Returns all errors found (does not fail-fast).
func Validate(rules []Rule) []ValidationError {
	var errs []ValidationError
	seen := map[string]bool{}

	for _, r := range rules {
		fail := func(field, code, format string, args ...any) {
			errs = append(errs, ValidationError{
				Rule:    r.Name,
				Field:   field,
				Message: fmt.Sprintf(format, args...),
				Code:    code,
				Line:    r.Line,
			})
		}

		if strings.TrimSpace(r.Name) == "" {
			fail("name", ErrEmptyRuleName, "rule name must be non-empty")
		}
		if seen[r.Name] {
			fail("name", ErrDuplicateRule, "duplicate rule name")
		}
		seen[r.Name] = true

		actions, ok := supportedActions[r.Event]
		if !ok {
			fail("event", ErrUnknownEvent, "event %q cannot be targeted by policy", r.Event)
			continue
		}
		if !slices.Contains(actions, r.Action) {
			fail("action", ErrUnsupportedAction, "action %q does not apply to %s", r.Action, r.Event)
		}

		if r.Operation != "" && r.Event != event.NameChangeBlock {
			fail("operation", ErrMatcherNotAllowed, "operation only matches %s", event.NameChangeBlock)
		}
		if r.Entity != "" && !entityEvent(r.Event) {
			fail("entity", ErrMatcherNotAllowed, "entity only matches %s and %s", event.NameSpawnEntity, event.NameHarvestEntity)
		}
		if r.Block != "" && entityEvent(r.Event) {
			fail("block", ErrMatcherNotAllowed, "block does not match %s", r.Event)
		}
		if r.Action == ActionReplace && r.Operation == event.OpDrops {
			fail("operation", ErrMatcherNotAllowed, "drops cannot be replaced, only invalidated")
		}

		switch {
		case r.Action == ActionReplace && r.State == "":
			fail("state", ErrMissingState, "replace requires a state")
		case r.Action != ActionReplace && r.State != "":
			fail("state", ErrStateNotAllowed, "state is only used by replace")
		}
		if r.Action == ActionReplace && r.Block == "" && r.Operation == "" && r.World == "" {
			fail("block", ErrReplaceWithoutTest, "replace must narrow by block, operation or world")
		}
	}

	return errs
}

func entityEvent(name string) bool {
	return name == event.NameSpawnEntity || name == event.NameHarvestEntity
}
