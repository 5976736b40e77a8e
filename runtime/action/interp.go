package action

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/osoco/staleguard/core/ast"
	"github.com/osoco/staleguard/core/invariant"
)

// Interp executes an action body against a Context. Statements run in order;
// a guarded block runs its protected statements and, only when a stale-write
// failure surfaces, runs the recovery body instead of propagating. Every
// other failure propagates unmodified.
type Interp struct {
	ctx    Context
	locals map[string]any
}

// NewInterp creates an interpreter bound to the given context
func NewInterp(ctx Context) *Interp {
	invariant.NotNil(ctx, "ctx")
	return &Interp{
		ctx:    ctx,
		locals: make(map[string]any),
	}
}

// Run executes the statements of an action body in order
func (in *Interp) Run(body []ast.Statement) error {
	for _, stmt := range body {
		if err := in.runStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interp) runStmt(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		return in.runAssign(s)
	case *ast.ExprStmt:
		_, err := in.eval(s.X)
		return err
	case *ast.RaiseStmt:
		if s.Kind == ast.StaleWriteFailure {
			return &StaleWriteError{Reason: s.Message}
		}
		return &RaisedError{Kind: s.Kind, Message: s.Message}
	case *ast.GuardedBlock:
		return in.runGuarded(s)
	default:
		return fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (in *Interp) runAssign(assign *ast.AssignStmt) error {
	value, err := in.eval(assign.Value)
	if err != nil {
		return err
	}

	switch target := assign.Target.(type) {
	case *ast.PropertyExpr:
		if target.Receiver == "flash" && target.Name == "message" {
			in.ctx.FlashScope().Message = value
			return nil
		}
		return fmt.Errorf("unsupported assignment target: %s", target.String())
	case *ast.Identifier:
		in.locals[target.Name] = value
		return nil
	default:
		return fmt.Errorf("unsupported assignment target type: %T", assign.Target)
	}
}

func (in *Interp) runGuarded(guard *ast.GuardedBlock) error {
	err := in.Run(guard.Body)
	if err == nil {
		return nil
	}

	var stale *StaleWriteError
	if guard.FailureKind == ast.StaleWriteFailure && errors.As(err, &stale) {
		return in.Run(guard.Recovery)
	}
	return err
}

func (in *Interp) eval(expr ast.Expression) (any, error) {
	switch e := expr.(type) {
	case *ast.StringLit:
		return e.Value, nil
	case *ast.NumberLit:
		if intVal, err := strconv.Atoi(e.Value); err == nil {
			return intVal, nil
		}
		if floatVal, err := strconv.ParseFloat(e.Value, 64); err == nil {
			return floatVal, nil
		}
		return nil, fmt.Errorf("invalid number literal: %s", e.Value)
	case *ast.Identifier:
		if value, ok := in.locals[e.Name]; ok {
			return value, nil
		}
		return in.ctx.RequestParams()[e.Name], nil
	case *ast.PropertyExpr:
		return in.evalProperty(e)
	case *ast.CallExpr:
		return in.evalCall(e)
	case *ast.SubMapExpr:
		return in.ctx.FilterParams(e.Names), nil
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", expr)
	}
}

func (in *Interp) evalProperty(prop *ast.PropertyExpr) (any, error) {
	switch prop.Receiver {
	case "flash":
		if prop.Name == "message" {
			return in.ctx.FlashScope().Message, nil
		}
	case "params":
		return in.ctx.RequestParams()[prop.Name], nil
	}
	return nil, fmt.Errorf("unsupported property: %s", prop.String())
}

// evalCall dispatches a by-name call. Only the operations the surrounding
// context supplies resolve; anything else fails at run time, mirroring
// late-bound dispatch.
func (in *Interp) evalCall(call *ast.CallExpr) (any, error) {
	args := make(map[string]any, len(call.Args))
	for _, entry := range call.Args {
		value, err := in.eval(entry.Value)
		if err != nil {
			return nil, err
		}
		args[entry.Key] = value
	}

	switch call.Name {
	case "message":
		return in.ctx.LookupMessage(args), nil
	case "redirect":
		return nil, in.ctx.RedirectTo(args)
	default:
		return nil, fmt.Errorf("unknown call target %q", call.Name)
	}
}
