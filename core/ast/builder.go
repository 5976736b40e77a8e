package ast

// Str creates a string literal expression
func Str(value string) *StringLit {
	return &StringLit{Value: value}
}

// Num creates a number literal expression
func Num(value string) *NumberLit {
	return &NumberLit{Value: value}
}

// Id creates an identifier expression
func Id(name string) *Identifier {
	return &Identifier{Name: name}
}

// Prop creates a scope property reference: Prop("flash", "message")
func Prop(receiver, name string) *PropertyExpr {
	return &PropertyExpr{Receiver: receiver, Name: name}
}

// Call creates a by-name call with a map-shaped argument
func Call(name string, entries ...MapEntry) *CallExpr {
	return &CallExpr{Name: name, Args: entries}
}

// Entry creates a map entry for call arguments
func Entry(key string, value Expression) MapEntry {
	return MapEntry{Key: key, Value: value}
}

// SubMap creates a parameter filter expression
func SubMap(names ...string) *SubMapExpr {
	return &SubMapExpr{Names: names}
}

// Assign creates an assignment statement
func Assign(target, value Expression) *AssignStmt {
	return &AssignStmt{Target: target, Value: value}
}

// Expr creates an expression statement
func Expr(x Expression) *ExprStmt {
	return &ExprStmt{X: x}
}

// Raise creates a raise statement
func Raise(kind, message string) *RaiseStmt {
	return &RaiseStmt{Kind: kind, Message: message}
}

// Arg creates a named annotation argument
func Arg(name string, value Expression) NamedParameter {
	return NamedParameter{Name: name, Value: value}
}

// Annotate creates an annotation with the given arguments
func Annotate(name string, args ...NamedParameter) *Annotation {
	return &Annotation{Name: name, Args: args}
}

// Action creates an action declaration
func Action(name string, annotation *Annotation, body ...Statement) *ActionDecl {
	return &ActionDecl{Name: name, Annotation: annotation, Body: body}
}
