package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/osoco/staleguard/core/ast"
)

// Document is the on-disk description of a set of controller actions the
// CLI rewrites. It is validated against DocumentSchema before decoding.
type Document struct {
	Version string      `json:"version"`
	Actions []ActionDoc `json:"actions"`
}

// ActionDoc describes one action. A nil Annotation means the action is not
// annotated and passes through the rewrite untouched.
type ActionDoc struct {
	Name       string            `json:"name"`
	Annotation map[string]string `json:"annotation,omitempty"`
	Body       []StatementDoc    `json:"body,omitempty"`
}

// StatementDoc carries exactly one statement variant
type StatementDoc struct {
	Assign *AssignDoc `json:"assign,omitempty"`
	Raise  *RaiseDoc  `json:"raise,omitempty"`
	Call   *CallDoc   `json:"call,omitempty"`
}

// AssignDoc assigns a value to "flash.message" or to a local name
type AssignDoc struct {
	Target string   `json:"target"`
	Value  ValueDoc `json:"value"`
}

// RaiseDoc raises a failure of the given kind
type RaiseDoc struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// CallDoc is a by-name call with a map-shaped argument
type CallDoc struct {
	Name string              `json:"name"`
	Args map[string]ValueDoc `json:"args,omitempty"`
}

// ValueDoc carries exactly one value variant
type ValueDoc struct {
	String *string `json:"string,omitempty"`
	Number *string `json:"number,omitempty"`
	Ident  *string `json:"ident,omitempty"`
}

// DocumentSchema is the JSON Schema enforced on action documents
const DocumentSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["version", "actions"],
	"additionalProperties": false,
	"properties": {
		"version": {"type": "string", "minLength": 1},
		"actions": {
			"type": "array",
			"items": {"$ref": "#/$defs/action"}
		}
	},
	"$defs": {
		"action": {
			"type": "object",
			"required": ["name"],
			"additionalProperties": false,
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"annotation": {
					"type": "object",
					"additionalProperties": {"type": "string"}
				},
				"body": {
					"type": "array",
					"items": {"$ref": "#/$defs/statement"}
				}
			}
		},
		"statement": {
			"type": "object",
			"minProperties": 1,
			"maxProperties": 1,
			"additionalProperties": false,
			"properties": {
				"assign": {
					"type": "object",
					"required": ["target", "value"],
					"additionalProperties": false,
					"properties": {
						"target": {"type": "string", "minLength": 1},
						"value": {"$ref": "#/$defs/value"}
					}
				},
				"raise": {
					"type": "object",
					"required": ["kind"],
					"additionalProperties": false,
					"properties": {
						"kind": {"type": "string", "minLength": 1},
						"message": {"type": "string"}
					}
				},
				"call": {
					"type": "object",
					"required": ["name"],
					"additionalProperties": false,
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"args": {
							"type": "object",
							"additionalProperties": {"$ref": "#/$defs/value"}
						}
					}
				}
			}
		},
		"value": {
			"type": "object",
			"minProperties": 1,
			"maxProperties": 1,
			"additionalProperties": false,
			"properties": {
				"string": {"type": "string"},
				"number": {"type": "string", "pattern": "^-?[0-9]+(\\.[0-9]+)?$"},
				"ident": {"type": "string", "minLength": 1}
			}
		}
	}
}`

const schemaURL = "schema://staleguard/actions.json"

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, strings.NewReader(DocumentSchema)); err != nil {
		panic(fmt.Sprintf("adding action document schema: %v", err))
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("compiling action document schema: %v", err))
	}
	return schema
}

// ValidateDocument checks raw JSON against the action document schema
func ValidateDocument(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing action document: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("invalid action document: %w", err)
	}
	return nil
}

// DecodeDocument validates and unmarshals an action document
func DecodeDocument(data []byte) (*Document, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding action document: %w", err)
	}
	return &doc, nil
}

// ToActions converts the document to action declarations
func (d *Document) ToActions() ([]*ast.ActionDecl, error) {
	actions := make([]*ast.ActionDecl, 0, len(d.Actions))
	for i := range d.Actions {
		decl, err := d.Actions[i].toAction()
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", d.Actions[i].Name, err)
		}
		actions = append(actions, decl)
	}
	return actions, nil
}

func (a *ActionDoc) toAction() (*ast.ActionDecl, error) {
	var annotation *ast.Annotation
	if a.Annotation != nil {
		annotation = ast.Annotate(AnnotationName, annotationArgs(a.Annotation)...)
	}

	body := make([]ast.Statement, 0, len(a.Body))
	for i, stmt := range a.Body {
		decoded, err := stmt.toStatement()
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		body = append(body, decoded)
	}

	return &ast.ActionDecl{
		Name:       a.Name,
		Annotation: annotation,
		Body:       body,
	}, nil
}

// annotationArgs converts the member map to named arguments in a stable
// order so repeated runs produce identical trees
func annotationArgs(members map[string]string) []ast.NamedParameter {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]ast.NamedParameter, 0, len(names))
	for _, name := range names {
		args = append(args, ast.Arg(name, ast.Str(members[name])))
	}
	return args
}

func (s *StatementDoc) toStatement() (ast.Statement, error) {
	switch {
	case s.Assign != nil:
		value, err := s.Assign.Value.toExpression()
		if err != nil {
			return nil, err
		}
		return ast.Assign(assignTarget(s.Assign.Target), value), nil
	case s.Raise != nil:
		return ast.Raise(s.Raise.Kind, s.Raise.Message), nil
	case s.Call != nil:
		entries, err := callEntries(s.Call.Args)
		if err != nil {
			return nil, err
		}
		return ast.Expr(ast.Call(s.Call.Name, entries...)), nil
	default:
		return nil, fmt.Errorf("statement carries no variant")
	}
}

// assignTarget resolves a dotted target to a scope property, anything else
// to a local identifier
func assignTarget(target string) ast.Expression {
	if receiver, name, ok := strings.Cut(target, "."); ok {
		return ast.Prop(receiver, name)
	}
	return ast.Id(target)
}

func callEntries(args map[string]ValueDoc) ([]ast.MapEntry, error) {
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]ast.MapEntry, 0, len(keys))
	for _, key := range keys {
		value, err := args[key].toExpression()
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", key, err)
		}
		entries = append(entries, ast.Entry(key, value))
	}
	return entries, nil
}

func (v ValueDoc) toExpression() (ast.Expression, error) {
	switch {
	case v.String != nil:
		return ast.Str(*v.String), nil
	case v.Number != nil:
		return ast.Num(*v.Number), nil
	case v.Ident != nil:
		return ast.Id(*v.Ident), nil
	default:
		return nil, fmt.Errorf("value carries no variant")
	}
}
