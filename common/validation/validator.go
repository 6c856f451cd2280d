// Package validation computes per-field empty/error flags for an entity
// form. Rules are CEL expressions over the field value; a failing rule is
// reported as data and only blocks submission.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/rows"
)

// Field names used in rules and report keys
const (
	FieldName            = "name"
	FieldSortName        = "sortName"
	FieldDisambiguation  = "disambiguation"
	FieldAliasName       = "alias.name"
	FieldAliasSortName   = "alias.sortName"
	FieldIdentifierValue = "identifier.value"
)

// IdentifierChecker is the part of the identifier catalog rules can call
type IdentifierChecker interface {
	IsValid(typeID int, value string) bool
}

// Rule validates one field. Required fields are in error when blank; a
// non-blank value is in error when Expression evaluates to false.
// Expressions see the value as `value` and row context as `ctx`.
type Rule struct {
	Field      string `json:"field" yaml:"field"`
	Required   bool   `json:"required" yaml:"required"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// DefaultRules are the rules every entity form uses
func DefaultRules() []Rule {
	return []Rule{
		{Field: FieldName, Required: true},
		{Field: FieldSortName, Required: true},
		{Field: FieldDisambiguation, Expression: `value.size() <= 255`},
		{Field: FieldAliasName, Required: true},
		{Field: FieldAliasSortName, Required: true},
		{Field: FieldIdentifierValue, Expression: `ctx.confirmed || validIdentifier(int(ctx.type), value.trim())`},
	}
}

// FieldState is the validation outcome of one field
type FieldState struct {
	Empty bool `json:"empty"`
	Error bool `json:"error"`
}

// Report maps field keys ("name", "aliases/n0/name", "identifiers/1/value")
// to their state
type Report struct {
	Fields map[string]FieldState `json:"fields"`
}

// Blocking reports whether any field is in error
func (r Report) Blocking() bool {
	for _, state := range r.Fields {
		if state.Error {
			return true
		}
	}
	return false
}

// Errors returns the keys of fields in error, sorted
func (r Report) Errors() []string {
	var keys []string
	for key, state := range r.Fields {
		if state.Error {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Form is the validated part of an entity's editing state
type Form struct {
	Name           models.Alias
	Disambiguation string
	Aliases        rows.Store[models.Alias]
	Identifiers    rows.Store[models.Identifier]
}

// Validator evaluates rules with compiled programs cached by expression
type Validator struct {
	rules map[string]Rule
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewValidator compiles nothing up front; programs are built on first use.
// A rule listed twice for the same field replaces the earlier one.
func NewValidator(rules []Rule, checker IdentifierChecker) (*Validator, error) {
	env, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("value", cel.StringType),
		cel.Variable("ctx", cel.DynType),
		cel.Function("validIdentifier",
			cel.Overload("validIdentifier_int_string",
				[]*cel.Type{cel.IntType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(typeID, value ref.Val) ref.Val {
					id, ok := typeID.(types.Int)
					if !ok {
						return types.False
					}
					text, ok := value.(types.String)
					if !ok || checker == nil {
						return types.False
					}
					return types.Bool(checker.IsValid(int(id), string(text)))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	byField := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		byField[rule.Field] = rule
	}

	return &Validator{
		rules: byField,
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Check evaluates the rule for field against value. Fields without a rule
// only report emptiness.
func (v *Validator) Check(field, value string, ctx map[string]any) (FieldState, error) {
	state := FieldState{Empty: strings.TrimSpace(value) == ""}

	rule, ok := v.rules[field]
	if !ok {
		return state, nil
	}
	if state.Empty {
		state.Error = rule.Required
		return state, nil
	}
	if rule.Expression == "" {
		return state, nil
	}

	if ctx == nil {
		ctx = map[string]any{}
	}
	passed, err := v.evaluate(rule.Expression, value, ctx)
	if err != nil {
		state.Error = true
		return state, fmt.Errorf("field %s: %w", field, err)
	}
	state.Error = !passed
	return state, nil
}

// Validate checks every field of the form. Evaluation failures mark the
// field in error and are returned joined.
func (v *Validator) Validate(form Form) (Report, error) {
	report := Report{Fields: make(map[string]FieldState)}
	var errs []error

	record := func(key, field, value string, ctx map[string]any) {
		state, err := v.Check(field, value, ctx)
		if err != nil {
			errs = append(errs, err)
		}
		report.Fields[key] = state
	}

	record(FieldName, FieldName, form.Name.Name, nil)
	record(FieldSortName, FieldSortName, form.Name.SortName, nil)
	record(FieldDisambiguation, FieldDisambiguation, form.Disambiguation, nil)

	for _, entry := range form.Aliases.Entries() {
		if entry.Value.IsEmpty() {
			continue
		}
		prefix := "aliases/" + string(entry.ID) + "/"
		record(prefix+"name", FieldAliasName, entry.Value.Name, nil)
		record(prefix+"sortName", FieldAliasSortName, entry.Value.SortName, nil)
	}

	for _, entry := range form.Identifiers.Entries() {
		if entry.Value.IsEmpty() {
			continue
		}
		ctx := map[string]any{
			"type":      int64(entry.Value.Type),
			"confirmed": entry.Value.Confirmed,
		}
		record("identifiers/"+string(entry.ID)+"/value", FieldIdentifierValue, entry.Value.Value, ctx)
	}

	return report, errors.Join(errs...)
}

func (v *Validator) evaluate(expr, value string, ctx map[string]any) (bool, error) {
	prg, err := v.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{
		"value": value,
		"ctx":   ctx,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}
	return result, nil
}

func (v *Validator) program(expr string) (cel.Program, error) {
	v.mu.RLock()
	prg, exists := v.cache[expr]
	v.mu.RUnlock()
	if exists {
		return prg, nil
	}

	ast, issues := v.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}
	prg, err := v.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	v.mu.Lock()
	v.cache[expr] = prg
	v.mu.Unlock()
	return prg, nil
}

// CacheSize returns the number of compiled expressions
func (v *Validator) CacheSize() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.cache)
}
