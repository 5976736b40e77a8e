package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osoco/staleguard/core/ast"
	"github.com/osoco/staleguard/core/diag"
	"github.com/osoco/staleguard/core/transform"
	"github.com/osoco/staleguard/runtime/action"
)

// rewrite runs the transform on an annotated action and fails the test on
// any diagnostic
func rewrite(t *testing.T, decl *ast.ActionDecl) *ast.ActionDecl {
	t.Helper()
	diags := diag.NewCollector()
	got := transform.RewriteAction(decl, diags)
	require.Zero(t, diags.Len(), "unexpected diagnostics: %v", diags.All())
	return got
}

// TestGuardedActionScenarios exercises the full rewrite-then-execute loop
// for the behaviors the wrapper guarantees
func TestGuardedActionScenarios(t *testing.T) {
	t.Run("defaults, block raises stale write", func(t *testing.T) {
		decl := ast.Action("update",
			ast.Annotate(transform.AnnotationName),
			ast.Raise(ast.StaleWriteFailure, "version moved"),
		)
		ctx := action.NewRecordingContext(action.Params{"id": 1, "other": 2})

		err := action.NewInterp(ctx).Run(rewrite(t, decl).Body)
		require.NoError(t, err)

		// Message location holds the default message key (stub lookup
		// returns its input code).
		assert.Equal(t, transform.DefaultMessageCode, ctx.Flash.Message)

		// Redirect goes to the default action with params filtered to the
		// default single key.
		require.Len(t, ctx.Redirects, 1)
		assert.Equal(t, transform.DefaultRedirect, ctx.Redirects[0]["action"])
		assert.Equal(t, action.Params{"id": 1}, ctx.Redirects[0]["params"])
	})

	t.Run("redirect member overrides the target action", func(t *testing.T) {
		decl := ast.Action("update",
			ast.Annotate(transform.AnnotationName,
				ast.Arg("redirect", ast.Str("otherAction")),
			),
			ast.Raise(ast.StaleWriteFailure, "version moved"),
		)
		ctx := action.NewRecordingContext(action.Params{"id": 7})

		err := action.NewInterp(ctx).Run(rewrite(t, decl).Body)
		require.NoError(t, err)

		require.Len(t, ctx.Redirects, 1)
		assert.Equal(t, "otherAction", ctx.Redirects[0]["action"])
		assert.Equal(t, transform.DefaultMessageCode, ctx.Flash.Message)
		assert.Equal(t, action.Params{"id": 7}, ctx.Redirects[0]["params"])
	})

	t.Run("params member filters the redirect submap", func(t *testing.T) {
		decl := ast.Action("update",
			ast.Annotate(transform.AnnotationName,
				ast.Arg("params", ast.Str("param1, param2, notExistingParam")),
			),
			ast.Raise(ast.StaleWriteFailure, "version moved"),
		)
		ctx := action.NewRecordingContext(action.Params{"id": 1, "other": 2, "param1": 3, "param2": 4})

		err := action.NewInterp(ctx).Run(rewrite(t, decl).Body)
		require.NoError(t, err)

		require.Len(t, ctx.Redirects, 1)
		want := action.Params{"param1": 3, "param2": 4, "notExistingParam": nil}
		assert.Equal(t, want, ctx.Redirects[0]["params"])
	})

	t.Run("messageCode member selects the lookup key", func(t *testing.T) {
		decl := ast.Action("update",
			ast.Annotate(transform.AnnotationName,
				ast.Arg("messageCode", ast.Str("otherMessage")),
			),
			ast.Raise(ast.StaleWriteFailure, "version moved"),
		)
		ctx := action.NewRecordingContext(nil)

		err := action.NewInterp(ctx).Run(rewrite(t, decl).Body)
		require.NoError(t, err)

		assert.Equal(t, "otherMessage", ctx.Flash.Message)
		require.Len(t, ctx.Lookups, 1)
		assert.Equal(t, map[string]any{"code": "otherMessage"}, ctx.Lookups[0])
	})

	t.Run("no failure leaves the wrapper inert", func(t *testing.T) {
		decl := ast.Action("update",
			ast.Annotate(transform.AnnotationName),
			ast.Assign(ast.Prop("flash", "message"), ast.Str("Success")),
		)
		ctx := action.NewRecordingContext(action.Params{"id": 1})

		err := action.NewInterp(ctx).Run(rewrite(t, decl).Body)
		require.NoError(t, err)

		assert.Equal(t, "Success", ctx.Flash.Message)
		assert.Empty(t, ctx.Redirects)
		assert.Empty(t, ctx.Lookups)
	})

	t.Run("other failure kinds propagate unmodified", func(t *testing.T) {
		decl := ast.Action("update",
			ast.Annotate(transform.AnnotationName),
			ast.Raise("ValidationFailure", "name is required"),
		)
		ctx := action.NewRecordingContext(nil)

		err := action.NewInterp(ctx).Run(rewrite(t, decl).Body)
		require.Error(t, err)

		var raised *action.RaisedError
		require.ErrorAs(t, err, &raised)
		assert.Equal(t, "ValidationFailure", raised.Kind)
		assert.Empty(t, ctx.Redirects)
		assert.Nil(t, ctx.Flash.Message)
	})

	t.Run("statements before the failure keep their effects", func(t *testing.T) {
		decl := ast.Action("update",
			ast.Annotate(transform.AnnotationName),
			ast.Assign(ast.Id("domain"), ast.Id("id")),
			ast.Raise(ast.StaleWriteFailure, "version moved"),
			// Unreached: execution jumps to the recovery body.
			ast.Assign(ast.Prop("flash", "message"), ast.Str("unreachable")),
		)
		ctx := action.NewRecordingContext(action.Params{"id": 41})

		err := action.NewInterp(ctx).Run(rewrite(t, decl).Body)
		require.NoError(t, err)

		assert.Equal(t, transform.DefaultMessageCode, ctx.Flash.Message)
		require.Len(t, ctx.Redirects, 1)
	})
}

// TestInterpFailureModes covers the interpreter's own error paths
func TestInterpFailureModes(t *testing.T) {
	t.Run("redirect failure propagates from the recovery body", func(t *testing.T) {
		decl := ast.Action("update",
			ast.Annotate(transform.AnnotationName),
			ast.Raise(ast.StaleWriteFailure, "version moved"),
		)
		ctx := action.NewRecordingContext(nil)
		ctx.RedirectErr = assert.AnError

		err := action.NewInterp(ctx).Run(rewrite(t, decl).Body)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("unknown call target fails at run time", func(t *testing.T) {
		body := []ast.Statement{ast.Expr(ast.Call("render"))}

		err := action.NewInterp(action.NewRecordingContext(nil)).Run(body)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown call target")
	})

	t.Run("local assignment shadows request params", func(t *testing.T) {
		ctx := action.NewRecordingContext(action.Params{"id": 1})
		in := action.NewInterp(ctx)

		body := []ast.Statement{
			ast.Assign(ast.Id("id"), ast.Num("99")),
			ast.Assign(ast.Prop("flash", "message"), ast.Id("id")),
		}
		require.NoError(t, in.Run(body))
		assert.Equal(t, 99, ctx.Flash.Message)
	})
}
