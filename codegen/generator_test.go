package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osoco/staleguard/codegen"
	"github.com/osoco/staleguard/core/ast"
	"github.com/osoco/staleguard/core/diag"
	"github.com/osoco/staleguard/core/transform"
)

func rewritten(t *testing.T, decl *ast.ActionDecl) *ast.ActionDecl {
	t.Helper()
	diags := diag.NewCollector()
	got := transform.RewriteAction(decl, diags)
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags.All())
	return got
}

func TestGenerateGuardedAction(t *testing.T) {
	decl := ast.Action("update",
		ast.Annotate(transform.AnnotationName),
		ast.Raise(ast.StaleWriteFailure, "version moved"),
	)

	got, err := codegen.Generate("controllers", []*ast.ActionDecl{rewritten(t, decl)})
	require.NoError(t, err)

	want := `// Code generated by staleguard. DO NOT EDIT.

package controllers

import (
	"errors"
	"github.com/osoco/staleguard/runtime/action"
)

// Update handles the "update" action.
func Update(ctx action.Context) error {
	err := func() error {
		return &action.StaleWriteError{Reason: "version moved"}
		return nil
	}()
	var stale *action.StaleWriteError
	if errors.As(err, &stale) {
		ctx.FlashScope().Message = ctx.LookupMessage(map[string]any{"code": "optimistic.locking.failure"})
		if err := ctx.RedirectTo(map[string]any{"action": "edit", "params": ctx.FilterParams([]string{"id"})}); err != nil {
			return err
		}
		return nil
	}
	if err != nil {
		return err
	}
	return nil
}`
	assert.Equal(t, want, got)
}

func TestGenerateUnannotatedAction(t *testing.T) {
	decl := ast.Action("show", nil,
		ast.Assign(ast.Prop("flash", "message"), ast.Str("Success")),
	)

	got, err := codegen.Generate("controllers", []*ast.ActionDecl{decl})
	require.NoError(t, err)

	// No guard, so no errors import.
	assert.NotContains(t, got, `"errors"`)
	assert.Contains(t, got, "func Show(ctx action.Context) error {")
	assert.Contains(t, got, `ctx.FlashScope().Message = "Success"`)
	assert.NotContains(t, got, "errors.As")
}

func TestGenerateLocals(t *testing.T) {
	decl := ast.Action("update", nil,
		ast.Assign(ast.Id("domain"), ast.Id("id")),
		ast.Assign(ast.Prop("flash", "message"), ast.Id("domain")),
	)

	got, err := codegen.Generate("controllers", []*ast.ActionDecl{decl})
	require.NoError(t, err)

	assert.Contains(t, got, "locals := make(map[string]any)")
	assert.Contains(t, got, `locals["domain"] = action.Lookup(locals, ctx, "id")`)
	assert.Contains(t, got, `ctx.FlashScope().Message = action.Lookup(locals, ctx, "domain")`)
}

func TestGenerateDeterministic(t *testing.T) {
	decl := rewritten(t, ast.Action("update",
		ast.Annotate(transform.AnnotationName,
			ast.Arg("params", ast.Str("param1, param2, notExistingParam")),
		),
		ast.Raise(ast.StaleWriteFailure, "version moved"),
	))

	first, err := codegen.Generate("controllers", []*ast.ActionDecl{decl})
	require.NoError(t, err)
	second, err := codegen.Generate("controllers", []*ast.ActionDecl{decl})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, `[]string{"param1", "param2", "notExistingParam"}`)
}

func TestGenerateUnsupportedCallTarget(t *testing.T) {
	decl := ast.Action("update", nil,
		ast.Expr(ast.Call("render")),
	)

	_, err := codegen.Generate("controllers", []*ast.ActionDecl{decl})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"render"`)
}
