package statemachine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Condition gates a conditional transition on the blackboard. Conditions
// are matched by identity when added or removed, so implementations should
// be pointer types.
type Condition[B any] interface {
	Evaluate(bb B) (bool, error)
}

// SerializableCondition is a Condition that can be written to and rebuilt
// from its source text.
type SerializableCondition[B any] interface {
	Condition[B]
	Source() string
}

// Expr is a condition compiled from an expression over the blackboard's
// fields (struct fields or map keys). Unknown names evaluate to nil.
type Expr[B any] struct {
	source  string
	program *vm.Program
}

var _ SerializableCondition[map[string]any] = (*Expr[map[string]any])(nil)

// Compile parses source into a condition. The expression must produce a bool.
func Compile[B any](source string) (*Expr[B], error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidCondition)
	}

	program, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidCondition, source, err)
	}

	return &Expr[B]{source: source, program: program}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile[B any](source string) *Expr[B] {
	e, err := Compile[B](source)
	if err != nil {
		panic(err)
	}

	return e
}

// Evaluate runs the expression against bb.
func (e *Expr[B]) Evaluate(bb B) (bool, error) {
	out, err := expr.Run(e.program, any(bb))
	if err != nil {
		return false, err
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q produced %T", ErrInvalidCondition, e.source, out)
	}

	return result, nil
}

// Source returns the expression text.
func (e *Expr[B]) Source() string {
	return e.source
}

func (e *Expr[B]) String() string {
	return e.source
}

type predicate[B any] struct {
	fn func(B) bool
}

// Predicate wraps a plain function as a condition. Predicates cannot be
// serialized.
func Predicate[B any](fn func(bb B) bool) Condition[B] {
	return &predicate[B]{fn: fn}
}

func (p *predicate[B]) Evaluate(bb B) (bool, error) {
	return p.fn(bb), nil
}

// Expression is a composable boolean expression over blackboard fields.
// Build one with F and the combinators, then turn it into a condition
// with When.
type Expression struct {
	src string
}

// Field names a blackboard field inside an Expression.
type Field struct {
	name string
}

// F starts an expression on the named blackboard field.
func F(name string) Field {
	return Field{name: name}
}

func (f Field) Eq(v any) Expression  { return f.cmp("==", v) }
func (f Field) Ne(v any) Expression  { return f.cmp("!=", v) }
func (f Field) Gt(v any) Expression  { return f.cmp(">", v) }
func (f Field) Gte(v any) Expression { return f.cmp(">=", v) }
func (f Field) Lt(v any) Expression  { return f.cmp("<", v) }
func (f Field) Lte(v any) Expression { return f.cmp("<=", v) }

// IsTrue matches when the field is the boolean true.
func (f Field) IsTrue() Expression {
	return f.cmp("==", true)
}

// IsFalse matches when the field is the boolean false.
func (f Field) IsFalse() Expression {
	return f.cmp("==", false)
}

func (f Field) cmp(op string, v any) Expression {
	return Expression{src: f.name + " " + op + " " + literal(v)}
}

// And matches when both expressions match.
func (e Expression) And(other Expression) Expression {
	return All(e, other)
}

// Or matches when either expression matches.
func (e Expression) Or(other Expression) Expression {
	return Any(e, other)
}

// Not negates an expression.
func Not(e Expression) Expression {
	return Expression{src: "!(" + e.src + ")"}
}

// All matches when every expression matches. An empty list is true.
func All(exprs ...Expression) Expression {
	return join("&&", "true", exprs)
}

// Any matches when at least one expression matches. An empty list is false.
func Any(exprs ...Expression) Expression {
	return join("||", "false", exprs)
}

func (e Expression) String() string {
	return e.src
}

// When compiles an Expression into a condition.
func When[B any](e Expression) (*Expr[B], error) {
	return Compile[B](e.src)
}

// MustWhen is like When but panics on error.
func MustWhen[B any](e Expression) *Expr[B] {
	return MustCompile[B](e.src)
}

func join(op, empty string, exprs []Expression) Expression {
	switch len(exprs) {
	case 0:
		return Expression{src: empty}
	case 1:
		return exprs[0]
	}

	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = "(" + e.src + ")"
	}

	return Expression{src: strings.Join(parts, " "+op+" ")}
}

func literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case fmt.Stringer:
		return strconv.Quote(val.String())
	default:
		return strconv.Quote(fmt.Sprint(val))
	}
}
