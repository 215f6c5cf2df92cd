// Package filter translates AIP-160 list filters into SQL conditions for the
// escrow journal and project summary tables.
package filter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Condition is a SQL WHERE fragment with positional parameters. The zero
// value matches every row.
type Condition struct {
	Clause string
	Params []any
}

// IsEmpty reports whether c adds no restriction.
func (c Condition) IsEmpty() bool {
	return strings.TrimSpace(c.Clause) == ""
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindTimestamp
)

type field struct {
	column string
	kind   fieldKind
}

// schema binds filter identifiers to columns of one table.
type schema map[string]field

var eventSchema = schema{
	"type":        {column: "event_type", kind: kindString},
	"actor_id":    {column: "actor_id", kind: kindString},
	"entity_type": {column: "entity_type", kind: kindString},
	"entity_id":   {column: "entity_id", kind: kindString},
	"seq":         {column: "seq", kind: kindInt},
	"ts":          {column: "timestamp", kind: kindTimestamp},
}

var projectSchema = schema{
	"state":                {column: "state", kind: kindString},
	"team_wallet":          {column: "team_wallet", kind: kindString},
	"vault":                {column: "vault_address", kind: kindString},
	"payment_token":        {column: "payment_token", kind: kindString},
	"project_token":        {column: "project_token", kind: kindString},
	"num_pledgers":         {column: "num_pledgers", kind: kindInt},
	"milestones":           {column: "milestones", kind: kindInt},
	"succeeded_milestones": {column: "succeeded_milestones", kind: kindInt},
	"grace_end":            {column: "grace_end", kind: kindTimestamp},
	"created_at":           {column: "created_at", kind: kindTimestamp},
	"updated_at":           {column: "updated_at", kind: kindTimestamp},
}

func (s schema) declarations() (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for name, f := range s {
		var t *expr.Type
		switch f.kind {
		case kindInt:
			t = filtering.TypeInt
		case kindTimestamp:
			t = filtering.TypeTimestamp
		default:
			t = filtering.TypeString
		}
		opts = append(opts, filtering.DeclareIdent(name, t))
	}
	return filtering.NewDeclarations(opts...)
}

// ParseEventFilter parses a journal filter such as
// `type = "pledge.added" AND actor_id = "0xa3"`.
func ParseEventFilter(filter string) (Condition, error) {
	return parse(filter, eventSchema)
}

// ParseProjectFilter parses a project summary filter such as
// `state = "IN_PROGRESS" AND num_pledgers >= 2`.
func ParseProjectFilter(filter string) (Condition, error) {
	return parse(filter, projectSchema)
}

func parse(filter string, s schema) (Condition, error) {
	if strings.TrimSpace(filter) == "" {
		return Condition{}, nil
	}
	decls, err := s.declarations()
	if err != nil {
		return Condition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filter, decls)
	if err != nil {
		return Condition{}, fmt.Errorf("parse filter: %w", err)
	}
	if parsed.CheckedExpr == nil {
		return Condition{}, nil
	}
	t := translator{schema: s}
	return t.expr(parsed.CheckedExpr.GetExpr())
}

type translator struct {
	schema schema
}

func (t translator) expr(e *expr.Expr) (Condition, error) {
	if e == nil {
		return Condition{}, nil
	}
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return Condition{}, fmt.Errorf("unsupported expression type: %T", e.GetExprKind())
	}
	args := call.CallExpr.GetArgs()
	switch fn := call.CallExpr.GetFunction(); fn {
	case filtering.FunctionAnd, filtering.FunctionFuzzyAnd:
		return t.join(flatten(args, filtering.FunctionAnd, filtering.FunctionFuzzyAnd), "AND")
	case filtering.FunctionOr:
		return t.join(flatten(args, filtering.FunctionOr), "OR")
	case filtering.FunctionNot:
		if len(args) != 1 {
			return Condition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := t.expr(args[0])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Clause: "(NOT " + inner.Clause + ")", Params: inner.Params}, nil
	case filtering.FunctionEquals,
		filtering.FunctionNotEquals,
		filtering.FunctionLessThan,
		filtering.FunctionLessEquals,
		filtering.FunctionGreaterThan,
		filtering.FunctionGreaterEquals:
		return t.comparison(args, fn)
	default:
		return Condition{}, fmt.Errorf("unsupported function: %s", fn)
	}
}

// flatten unnests the left-leaning binary calls the parser builds for
// chained AND and OR terms.
func flatten(args []*expr.Expr, fns ...string) []*expr.Expr {
	out := make([]*expr.Expr, 0, len(args))
	for _, arg := range args {
		call := arg.GetCallExpr()
		if call != nil && slices.Contains(fns, call.GetFunction()) {
			out = append(out, flatten(call.GetArgs(), fns...)...)
			continue
		}
		out = append(out, arg)
	}
	return out
}

func (t translator) join(args []*expr.Expr, op string) (Condition, error) {
	if len(args) < 2 {
		return Condition{}, fmt.Errorf("%s requires at least 2 arguments", op)
	}
	clauses := make([]string, 0, len(args))
	var params []any
	for _, arg := range args {
		c, err := t.expr(arg)
		if err != nil {
			return Condition{}, err
		}
		clauses = append(clauses, c.Clause)
		params = append(params, c.Params...)
	}
	return Condition{
		Clause: "(" + strings.Join(clauses, " "+op+" ") + ")",
		Params: params,
	}, nil
}

func (t translator) comparison(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return Condition{}, fmt.Errorf("expected identifier, got %T", args[0].GetExprKind())
	}
	name := ident.IdentExpr.GetName()
	f, ok := t.schema[name]
	if !ok {
		return Condition{}, fmt.Errorf("unknown field: %s", name)
	}
	value, err := f.value(args[1])
	if err != nil {
		return Condition{}, fmt.Errorf("field %s: %w", name, err)
	}
	return Condition{
		Clause: fmt.Sprintf("%s %s ?", f.column, op),
		Params: []any{value},
	}, nil
}

func (f field) value(e *expr.Expr) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			switch f.kind {
			case kindString:
				return c.StringValue, nil
			case kindTimestamp:
				return timestampMillis(e)
			default:
				return nil, fmt.Errorf("expected a string field")
			}
		case *expr.Constant_Int64Value:
			if f.kind != kindInt {
				return nil, fmt.Errorf("expected an integer field")
			}
			return c.Int64Value, nil
		default:
			return nil, fmt.Errorf("unsupported constant type: %T", c)
		}
	case *expr.Expr_CallExpr:
		if kind.CallExpr.GetFunction() != filtering.FunctionTimestamp || len(kind.CallExpr.GetArgs()) != 1 {
			return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.GetFunction())
		}
		if f.kind != kindTimestamp {
			return nil, fmt.Errorf("timestamp compared with a non-timestamp field")
		}
		return timestampMillis(kind.CallExpr.GetArgs()[0])
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

// timestampMillis matches the UTC millisecond encoding the store uses.
func timestampMillis(e *expr.Expr) (int64, error) {
	raw := e.GetConstExpr().GetStringValue()
	if raw == "" {
		return 0, fmt.Errorf("timestamp argument must be a constant string")
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp format: %s", raw)
	}
	return t.UTC().UnixMilli(), nil
}
