// Package codegen renders rewritten actions as Go source. The emitted
// functions are parameterized over action.Context, so the late-bound message
// and redirect operations stay injectable at run time.
package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/osoco/staleguard/core/ast"
)

const runtimeImport = "github.com/osoco/staleguard/runtime/action"

// fileTemplate renders the generated file shell: header, package clause,
// imports, then the pre-rendered action functions
const fileTemplate = `// Code generated by staleguard. DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	"{{.}}"
{{- end}}
)
{{range .Funcs}}
{{.}}
{{- end}}`

type fileData struct {
	Package string
	Imports []string
	Funcs   []string
}

// Generate renders the given actions into a single Go source file. Output is
// deterministic: identical input yields identical text.
func Generate(pkg string, actions []*ast.ActionDecl) (string, error) {
	data := fileData{Package: pkg}

	needsErrors := false
	for _, decl := range actions {
		fn, usesGuard, err := generateFunc(decl)
		if err != nil {
			return "", fmt.Errorf("generating action %q: %w", decl.Name, err)
		}
		data.Funcs = append(data.Funcs, fn)
		needsErrors = needsErrors || usesGuard
	}

	if needsErrors {
		data.Imports = append(data.Imports, "errors")
	}
	data.Imports = append(data.Imports, runtimeImport)

	tmpl, err := template.New("file").Parse(fileTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing file template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering file: %w", err)
	}
	return sb.String(), nil
}

// generateFunc renders one action as an exported function
func generateFunc(decl *ast.ActionDecl) (string, bool, error) {
	g := &generator{}

	g.printf(0, "// %s handles the %q action.", exportName(decl.Name), decl.Name)
	g.printf(0, "func %s(ctx action.Context) error {", exportName(decl.Name))
	if usesLocals(decl.Body) {
		g.printf(1, "locals := make(map[string]any)")
	}
	usesGuard, err := g.emitStmts(decl.Body, 1)
	if err != nil {
		return "", false, err
	}
	g.printf(1, "return nil")
	g.printf(0, "}")

	return strings.TrimRight(g.sb.String(), "\n"), usesGuard, nil
}

type generator struct {
	sb strings.Builder
}

func (g *generator) printf(depth int, format string, args ...interface{}) {
	g.sb.WriteString(strings.Repeat("\t", depth))
	g.sb.WriteString(fmt.Sprintf(format, args...))
	g.sb.WriteString("\n")
}

func (g *generator) emitStmts(stmts []ast.Statement, depth int) (bool, error) {
	usesGuard := false
	for _, stmt := range stmts {
		guarded, err := g.emitStmt(stmt, depth)
		if err != nil {
			return false, err
		}
		usesGuard = usesGuard || guarded
	}
	return usesGuard, nil
}

func (g *generator) emitStmt(stmt ast.Statement, depth int) (bool, error) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		return false, g.emitAssign(s, depth)
	case *ast.ExprStmt:
		return false, g.emitExprStmt(s, depth)
	case *ast.RaiseStmt:
		g.emitRaise(s, depth)
		return false, nil
	case *ast.GuardedBlock:
		return true, g.emitGuarded(s, depth)
	default:
		return false, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (g *generator) emitAssign(assign *ast.AssignStmt, depth int) error {
	value, err := renderExpr(assign.Value)
	if err != nil {
		return err
	}

	switch target := assign.Target.(type) {
	case *ast.PropertyExpr:
		if target.Receiver == "flash" && target.Name == "message" {
			g.printf(depth, "ctx.FlashScope().Message = %s", value)
			return nil
		}
		return fmt.Errorf("unsupported assignment target: %s", target.String())
	case *ast.Identifier:
		g.printf(depth, "locals[%q] = %s", target.Name, value)
		return nil
	default:
		return fmt.Errorf("unsupported assignment target type: %T", assign.Target)
	}
}

func (g *generator) emitExprStmt(stmt *ast.ExprStmt, depth int) error {
	// Redirect calls surface their error; everything else is evaluated for
	// effect only.
	if call, ok := stmt.X.(*ast.CallExpr); ok && call.Name == "redirect" {
		args, err := renderCallArgs(call)
		if err != nil {
			return err
		}
		g.printf(depth, "if err := ctx.RedirectTo(%s); err != nil {", args)
		g.printf(depth+1, "return err")
		g.printf(depth, "}")
		return nil
	}

	value, err := renderExpr(stmt.X)
	if err != nil {
		return err
	}
	g.printf(depth, "_ = %s", value)
	return nil
}

func (g *generator) emitRaise(raise *ast.RaiseStmt, depth int) {
	if raise.Kind == ast.StaleWriteFailure {
		g.printf(depth, "return &action.StaleWriteError{Reason: %s}", strconv.Quote(raise.Message))
		return
	}
	g.printf(depth, "return &action.RaisedError{Kind: %s, Message: %s}",
		strconv.Quote(raise.Kind), strconv.Quote(raise.Message))
}

// emitGuarded renders the protected region as a closure whose error feeds
// the recovery path when it is a stale-write failure
func (g *generator) emitGuarded(guard *ast.GuardedBlock, depth int) error {
	if guard.FailureKind != ast.StaleWriteFailure {
		return fmt.Errorf("unsupported failure kind %q", guard.FailureKind)
	}

	g.printf(depth, "err := func() error {")
	if _, err := g.emitStmts(guard.Body, depth+1); err != nil {
		return err
	}
	g.printf(depth+1, "return nil")
	g.printf(depth, "}()")

	g.printf(depth, "var stale *action.StaleWriteError")
	g.printf(depth, "if errors.As(err, &stale) {")
	if _, err := g.emitStmts(guard.Recovery, depth+1); err != nil {
		return err
	}
	g.printf(depth+1, "return nil")
	g.printf(depth, "}")
	g.printf(depth, "if err != nil {")
	g.printf(depth+1, "return err")
	g.printf(depth, "}")
	return nil
}

func renderExpr(expr ast.Expression) (string, error) {
	switch e := expr.(type) {
	case *ast.StringLit:
		return strconv.Quote(e.Value), nil
	case *ast.NumberLit:
		return e.Value, nil
	case *ast.Identifier:
		return fmt.Sprintf("action.Lookup(locals, ctx, %q)", e.Name), nil
	case *ast.PropertyExpr:
		if e.Receiver == "flash" && e.Name == "message" {
			return "ctx.FlashScope().Message", nil
		}
		if e.Receiver == "params" {
			return fmt.Sprintf("ctx.RequestParams()[%q]", e.Name), nil
		}
		return "", fmt.Errorf("unsupported property: %s", e.String())
	case *ast.CallExpr:
		return renderCall(e)
	case *ast.SubMapExpr:
		return fmt.Sprintf("ctx.FilterParams(%s)", renderNameList(e.Names)), nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", expr)
	}
}

func renderCall(call *ast.CallExpr) (string, error) {
	args, err := renderCallArgs(call)
	if err != nil {
		return "", err
	}

	switch call.Name {
	case "message":
		return fmt.Sprintf("ctx.LookupMessage(%s)", args), nil
	default:
		// Redirect is handled at statement level; anything else has no
		// call target in the runtime contract.
		return "", fmt.Errorf("unsupported call target %q", call.Name)
	}
}

func renderCallArgs(call *ast.CallExpr) (string, error) {
	parts := make([]string, 0, len(call.Args))
	for _, entry := range call.Args {
		value, err := renderExpr(entry.Value)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%q: %s", entry.Key, value))
	}
	return fmt.Sprintf("map[string]any{%s}", strings.Join(parts, ", ")), nil
}

func renderNameList(names []string) string {
	if len(names) == 0 {
		return "nil"
	}
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = strconv.Quote(name)
	}
	return fmt.Sprintf("[]string{%s}", strings.Join(quoted, ", "))
}

// usesLocals reports whether any statement reads or writes a local name
func usesLocals(stmts []ast.Statement) bool {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.AssignStmt:
			if _, ok := s.Target.(*ast.Identifier); ok {
				return true
			}
			if exprUsesLocals(s.Value) {
				return true
			}
		case *ast.ExprStmt:
			if exprUsesLocals(s.X) {
				return true
			}
		case *ast.GuardedBlock:
			if usesLocals(s.Body) || usesLocals(s.Recovery) {
				return true
			}
		}
	}
	return false
}

func exprUsesLocals(expr ast.Expression) bool {
	switch e := expr.(type) {
	case *ast.Identifier:
		return true
	case *ast.CallExpr:
		for _, entry := range e.Args {
			if exprUsesLocals(entry.Value) {
				return true
			}
		}
	}
	return false
}

// exportName derives the generated function name from the action name
func exportName(name string) string {
	if name == "" {
		return "Action"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
