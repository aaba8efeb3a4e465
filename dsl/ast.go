// Package dsl defines the Rule/RuleProgram AST the kernel evaluates, the
// Parser collaborator contract (spec §4.B and §6), and fingerprinting of a
// compiled program's canonical AST form.
package dsl

// Rule is a single named rule: a condition guarding zero or more actions,
// ordered for agenda conflict resolution by Salience then insertion index
// (spec §3 Agenda Item).
type Rule struct {
	Name      string
	Salience  int
	Condition Expr
	Actions   []Action
}

// RuleProgram is an ordered multiset of Rule (spec §3 Rule Program).
type RuleProgram struct {
	Rules []Rule
}

// ExprKind discriminates the Expr variants the kernel's evaluator switches
// on. Kept as a distinct type (not an interface-only sealed union) because
// the reference parser and the fingerprinting code both need to hash and
// compare nodes structurally without a type switch at every site.
type ExprKind string

const (
	ExprLiteral    ExprKind = "Literal"
	ExprPath       ExprKind = "Path"
	ExprUnary      ExprKind = "Unary"
	ExprBinary     ExprKind = "Binary"
	ExprLogical    ExprKind = "Logical"
	ExprCall       ExprKind = "Call"
)

// LiteralKind names the Go value kind carried by an ExprLiteral node.
type LiteralKind string

const (
	LitNull   LiteralKind = "Null"
	LitBool   LiteralKind = "Bool"
	LitInt64  LiteralKind = "Int64"
	LitFloat  LiteralKind = "Float64"
	LitString LiteralKind = "String"
)

// Expr is a side-effect-free expression tree node (spec §3 Rule: Expr).
// A single struct, rather than per-kind types, keeps the fingerprinting
// walk (dsl/fingerprint.go) and the kernel's evaluator (kernel/eval.go)
// from needing parallel type switches; Kind selects which fields are
// meaningful, mirroring how the teacher's Configuration is a flat
// map[string]any interpreted per node Type.
type Expr struct {
	Kind ExprKind

	// ExprLiteral
	LitKind LiteralKind
	Bool    bool
	Int64   int64
	Float64 float64
	Str     string

	// ExprPath
	Path string

	// ExprUnary: Op is "!" or "-"; Operand is the sub-expression.
	// ExprBinary: Op is one of "==","!=","<","<=",">",">=","+","-","*","/","%".
	// ExprLogical: Op is "&&" or "||".
	Op      string
	Operand *Expr
	Left    *Expr
	Right   *Expr

	// ExprCall
	Func string
	Args []Expr
}

// ActionKind discriminates the Action variants (spec §3 Rule: Action).
type ActionKind string

const (
	ActionAssign  ActionKind = "Assign"
	ActionLog     ActionKind = "Log"
	ActionRetract ActionKind = "Retract"
	ActionCall    ActionKind = "Call"
)

// Action is one effect a rule applies when it fires.
type Action struct {
	Kind ActionKind

	// ActionAssign
	Path  string
	Value Expr

	// ActionLog
	Message Expr

	// ActionRetract
	RuleName string

	// ActionCall
	Func string
	Args []Expr
}
