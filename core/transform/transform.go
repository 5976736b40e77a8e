// Package transform implements the staleguard rewrite pass.
//
// Given an action annotated with @staleguard, the pass builds a new version
// of the action whose body is a single guarded block: the original statements
// run unchanged, and when a stale-write failure is raised the generated
// recovery stores a looked-up message in the flash scope and redirects to the
// configured action with a filtered submap of the request parameters.
//
// The pass is a pure tree-to-tree rewrite: it never mutates its input. The
// caller substitutes the returned action for the original one.
package transform

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/osoco/staleguard/core/ast"
	"github.com/osoco/staleguard/core/diag"
	"github.com/osoco/staleguard/core/invariant"
	"github.com/osoco/staleguard/core/types"
)

// AnnotationName is the annotation the pass recognizes
const AnnotationName = types.AnnotationName

// Member names and defaults come from the annotation's declaration surface
const (
	DefaultRedirect    = types.DefaultRedirect
	DefaultParams      = types.DefaultParams
	DefaultMessageCode = types.DefaultMessageCode
)

// knownMembers is the declared member set, used for unknown-member hints
var knownMembers = types.MemberNames()

// Spec holds the effective configuration of one annotated action.
// Immutable once resolved; lives for the duration of one rewrite.
type Spec struct {
	Redirect    string
	MessageCode string
	ParamNames  string
}

// ResolveSpec extracts the effective value for each recognized member:
// the declared value if present, else the member's default. Absence is a
// normal case, never an error.
func ResolveSpec(annotation *ast.Annotation) Spec {
	invariant.NotNil(annotation, "annotation")

	return Spec{
		Redirect:    ast.GetStringArg(annotation.Args, types.MemberRedirect, DefaultRedirect),
		MessageCode: ast.GetStringArg(annotation.Args, types.MemberMessageCode, DefaultMessageCode),
		ParamNames:  ast.GetStringArg(annotation.Args, types.MemberParams, DefaultParams),
	}
}

// SplitParamNames splits a comma-separated configuration string into an
// ordered list of trimmed names. Order and duplicates are preserved; no
// validation happens here — a name absent from the request parameters
// resolves to a null entry at generated-code runtime.
//
// A blank input yields nil: an explicit params="" behaves the same as an
// absent member, so no parameters are forwarded.
func SplitParamNames(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	pieces := strings.Split(raw, ",")
	names := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		names = append(names, strings.TrimSpace(piece))
	}
	return names
}

// BuildRecovery constructs the recovery body: exactly two statements, in
// fixed order:
//
//	flash.message = message({code: <messageCode>})
//	redirect({action: <redirect>, params: subMap(<names>)})
//
// The message and redirect call targets are emitted by name only; the
// surrounding execution context resolves them at run time.
func BuildRecovery(spec Spec, paramNames []string) []ast.Statement {
	return []ast.Statement{
		ast.Assign(
			ast.Prop("flash", "message"),
			ast.Call("message", ast.Entry("code", ast.Str(spec.MessageCode))),
		),
		ast.Expr(
			ast.Call("redirect",
				ast.Entry("action", ast.Str(spec.Redirect)),
				ast.Entry("params", ast.SubMap(paramNames...)),
			),
		),
	}
}

// Wrap combines the original statements and the recovery body into a single
// guarded block keyed on the stale-write failure kind. The original
// statements are moved, not copied; there is no finally region.
func Wrap(body, recovery []ast.Statement) ast.Statement {
	return &ast.GuardedBlock{
		Body:        body,
		FailureKind: ast.StaleWriteFailure,
		Recovery:    recovery,
	}
}

// RewriteAction is the pass entry point, invoked once per annotated action.
// It returns a new ActionDecl whose body is the single guarded block; the
// input is never mutated.
//
// Malformed shapes (nil action, missing or foreign annotation) should be
// unreachable given well-formed usage: they are reported as internal
// diagnostics and the input is returned unchanged so the surrounding run can
// continue. Unknown annotation members produce a warning with a spelling
// hint and are otherwise ignored.
func RewriteAction(action *ast.ActionDecl, diags *diag.Collector) *ast.ActionDecl {
	invariant.NotNil(diags, "diags")

	if action == nil {
		diags.Internalf(ast.Position{}, "rewrite invoked without an action")
		return nil
	}
	if action.Annotation == nil {
		diags.Internalf(action.Pos, "rewrite invoked on action %q without an annotation", action.Name)
		return action
	}
	if action.Annotation.Name != AnnotationName {
		diags.Internalf(action.Annotation.Pos,
			"rewrite invoked on action %q with annotation @%s, expected @%s",
			action.Name, action.Annotation.Name, AnnotationName)
		return action
	}

	warnUnknownMembers(action.Annotation, diags)

	spec := ResolveSpec(action.Annotation)
	paramNames := SplitParamNames(spec.ParamNames)
	recovery := BuildRecovery(spec, paramNames)
	wrapped := Wrap(action.Body, recovery)

	return &ast.ActionDecl{
		Name:       action.Name,
		Annotation: action.Annotation,
		Body:       []ast.Statement{wrapped},
		Pos:        action.Pos,
	}
}

// warnUnknownMembers reports annotation arguments outside the declared
// member set. Unknown members never fail the rewrite.
func warnUnknownMembers(annotation *ast.Annotation, diags *diag.Collector) {
	for _, arg := range annotation.Args {
		if isKnownMember(arg.Name) {
			continue
		}

		d := diag.Diagnostic{
			Severity: diag.Warning,
			Message:  "unknown annotation member '" + arg.Name + "' ignored",
			Pos:      arg.Pos,
		}
		if suggestion := suggestMember(arg.Name); suggestion != "" {
			d.Suggestions = []string{"did you mean '" + suggestion + "'?"}
		}
		diags.Add(d)
	}
}

func isKnownMember(name string) bool {
	for _, member := range knownMembers {
		if member == name {
			return true
		}
	}
	return false
}

// suggestMember returns the closest declared member name, or "" when nothing
// is close enough to be a plausible typo.
func suggestMember(name string) string {
	ranks := fuzzy.RankFindFold(name, knownMembers)
	if len(ranks) > 0 {
		return ranks[0].Target
	}
	return ""
}
