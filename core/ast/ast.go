package ast

import (
	"fmt"
	"strings"
)

// Node represents any node in the action tree
type Node interface {
	String() string
	Position() Position
}

// Position represents source location information
type Position struct {
	Line   int
	Column int
	Offset int // Byte offset in source
}

// StaleWriteFailure is the failure kind a GuardedBlock recovers from: the
// version of a persistent instance observed by the action no longer matches
// the stored version when the write happens.
const StaleWriteFailure = "StaleWriteFailure"

// ActionDecl represents a controller action, optionally annotated.
// Body holds the ordered statements of the action block.
type ActionDecl struct {
	Name       string
	Annotation *Annotation // nil when the action is not annotated
	Body       []Statement
	Pos        Position
}

func (a *ActionDecl) String() string {
	var sb strings.Builder
	if a.Annotation != nil {
		sb.WriteString(a.Annotation.String())
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("action %s {\n", a.Name))
	for _, stmt := range a.Body {
		writeIndented(&sb, stmt.String(), 1)
	}
	sb.WriteString("}")
	return sb.String()
}

func (a *ActionDecl) Position() Position {
	return a.Pos
}

// Annotation represents a declarative metadata attachment on an action,
// carrying named configuration values.
type Annotation struct {
	Name string
	Args []NamedParameter
	Pos  Position
}

func (a *Annotation) String() string {
	if len(a.Args) == 0 {
		return fmt.Sprintf("@%s", a.Name)
	}
	parts := make([]string, 0, len(a.Args))
	for _, arg := range a.Args {
		parts = append(parts, arg.String())
	}
	return fmt.Sprintf("@%s(%s)", a.Name, strings.Join(parts, ", "))
}

func (a *Annotation) Position() Position {
	return a.Pos
}

// NamedParameter represents a named argument in an annotation
type NamedParameter struct {
	Name  string
	Value Expression
	Pos   Position
}

func (n NamedParameter) String() string {
	return fmt.Sprintf("%s = %s", n.Name, n.Value.String())
}

func (n NamedParameter) Position() Position {
	return n.Pos
}

// FindArg searches for an annotation argument by name
func FindArg(args []NamedParameter, name string) *NamedParameter {
	for i := range args {
		if args[i].Name == name {
			return &args[i]
		}
	}
	return nil
}

// GetStringArg retrieves a string argument value with default fallback.
// Absence of the argument, or a non-string value, yields the default.
func GetStringArg(args []NamedParameter, name string, defaultValue string) string {
	if arg := FindArg(args, name); arg != nil {
		if str, ok := arg.Value.(*StringLit); ok {
			return str.Value
		}
	}
	return defaultValue
}

// ================================================================================================
// STATEMENTS
// ================================================================================================

// Statement represents any statement in an action body
type Statement interface {
	Node
	IsStatement() bool
}

// AssignStmt represents an assignment: target = value
type AssignStmt struct {
	Target Expression
	Value  Expression
	Pos    Position
}

func (s *AssignStmt) String() string {
	return fmt.Sprintf("%s = %s", s.Target.String(), s.Value.String())
}

func (s *AssignStmt) Position() Position { return s.Pos }
func (s *AssignStmt) IsStatement() bool  { return true }

// ExprStmt represents an expression evaluated for its effect, typically a call
type ExprStmt struct {
	X   Expression
	Pos Position
}

func (s *ExprStmt) String() string {
	return s.X.String()
}

func (s *ExprStmt) Position() Position { return s.Pos }
func (s *ExprStmt) IsStatement() bool  { return true }

// RaiseStmt raises a failure of the given kind
type RaiseStmt struct {
	Kind    string
	Message string
	Pos     Position
}

func (s *RaiseStmt) String() string {
	return fmt.Sprintf("raise %s(%q)", s.Kind, s.Message)
}

func (s *RaiseStmt) Position() Position { return s.Pos }
func (s *RaiseStmt) IsStatement() bool  { return true }

// GuardedBlock combines a protected statement sequence with a recovery body
// that runs instead of propagation when a failure of FailureKind is raised.
// Body and Recovery each preserve their original statement order.
type GuardedBlock struct {
	Body        []Statement
	FailureKind string
	Recovery    []Statement
	Pos         Position
}

func (g *GuardedBlock) String() string {
	var sb strings.Builder
	sb.WriteString("guard {\n")
	for _, stmt := range g.Body {
		writeIndented(&sb, stmt.String(), 1)
	}
	sb.WriteString(fmt.Sprintf("} recover %s {\n", g.FailureKind))
	for _, stmt := range g.Recovery {
		writeIndented(&sb, stmt.String(), 1)
	}
	sb.WriteString("}")
	return sb.String()
}

func (g *GuardedBlock) Position() Position { return g.Pos }
func (g *GuardedBlock) IsStatement() bool  { return true }

// ================================================================================================
// EXPRESSIONS
// ================================================================================================

// Expression represents any expression (literals, identifiers, calls)
type Expression interface {
	Node
	IsExpression() bool
}

// StringLit represents a string literal
type StringLit struct {
	Value string
	Pos   Position
}

func (e *StringLit) String() string {
	return fmt.Sprintf("%q", e.Value)
}

func (e *StringLit) Position() Position { return e.Pos }
func (e *StringLit) IsExpression() bool { return true }

// NumberLit represents a numeric literal, kept in source form
type NumberLit struct {
	Value string
	Pos   Position
}

func (e *NumberLit) String() string {
	return e.Value
}

func (e *NumberLit) Position() Position { return e.Pos }
func (e *NumberLit) IsExpression() bool { return true }

// Identifier references an ambient request parameter by name
type Identifier struct {
	Name string
	Pos  Position
}

func (e *Identifier) String() string {
	return e.Name
}

func (e *Identifier) Position() Position { return e.Pos }
func (e *Identifier) IsExpression() bool { return true }

// PropertyExpr references a property of a well-known scope, e.g. flash.message
type PropertyExpr struct {
	Receiver string
	Name     string
	Pos      Position
}

func (e *PropertyExpr) String() string {
	return fmt.Sprintf("%s.%s", e.Receiver, e.Name)
}

func (e *PropertyExpr) Position() Position { return e.Pos }
func (e *PropertyExpr) IsExpression() bool { return true }

// MapEntry is a single key/value pair in a map-shaped call argument
type MapEntry struct {
	Key   string
	Value Expression
}

func (m MapEntry) String() string {
	return fmt.Sprintf("%s: %s", m.Key, m.Value.String())
}

// CallExpr represents a call dispatched by name at the call site with a
// single map-shaped argument. The callee is resolved by the surrounding
// execution context, not bound here.
type CallExpr struct {
	Name string
	Args []MapEntry
	Pos  Position
}

func (e *CallExpr) String() string {
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		parts = append(parts, arg.String())
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(parts, ", "))
}

func (e *CallExpr) Position() Position { return e.Pos }
func (e *CallExpr) IsExpression() bool { return true }

// SubMapExpr filters the ambient request parameters by name list. The result
// contains one entry per requested name; absent names map to a null value.
type SubMapExpr struct {
	Names []string
	Pos   Position
}

func (e *SubMapExpr) String() string {
	return fmt.Sprintf("params.subMap([%s])", strings.Join(e.Names, ", "))
}

func (e *SubMapExpr) Position() Position { return e.Pos }
func (e *SubMapExpr) IsExpression() bool { return true }

// writeIndented writes a possibly multi-line fragment with leading tabs
func writeIndented(sb *strings.Builder, text string, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, line := range strings.Split(text, "\n") {
		sb.WriteString(indent)
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}
