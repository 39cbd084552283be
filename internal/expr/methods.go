package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apexrules/apex/internal/model"
)

// methodFunc implements one (kind, name) capability-table entry (§4.1:
// "Method resolution uses a capability table on value kinds"). Arity is not
// part of the key; entries that take arguments check the count themselves.
type methodFunc func(target model.Value, args []model.Value) (model.Value, error)

type methodKey struct {
	kind model.Kind
	name string
}

var methodTable = map[methodKey]methodFunc{
	{model.KindString, "toUpperCase"}: func(t model.Value, a []model.Value) (model.Value, error) {
		return model.String(strings.ToUpper(t.Str())), nil
	},
	{model.KindString, "toLowerCase"}: func(t model.Value, a []model.Value) (model.Value, error) {
		return model.String(strings.ToLower(t.Str())), nil
	},
	{model.KindString, "trim"}: func(t model.Value, a []model.Value) (model.Value, error) {
		return model.String(strings.TrimSpace(t.Str())), nil
	},
	{model.KindString, "length"}: func(t model.Value, a []model.Value) (model.Value, error) {
		return model.Int(int64(len([]rune(t.Str())))), nil
	},
	{model.KindString, "substring"}: func(t model.Value, a []model.Value) (model.Value, error) {
		runes := []rune(t.Str())
		if len(a) == 1 {
			i, err := intArg(a[0])
			if err != nil {
				return model.Null, err
			}
			if i < 0 || i > int64(len(runes)) {
				return model.Null, fmt.Errorf("substring start %d out of range", i)
			}
			return model.String(string(runes[i:])), nil
		}
		if len(a) == 2 {
			i, err := intArg(a[0])
			if err != nil {
				return model.Null, err
			}
			j, err := intArg(a[1])
			if err != nil {
				return model.Null, err
			}
			if i < 0 || j > int64(len(runes)) || i > j {
				return model.Null, fmt.Errorf("substring range [%d,%d) out of bounds for length %d", i, j, len(runes))
			}
			return model.String(string(runes[i:j])), nil
		}
		return model.Null, fmt.Errorf("substring expects 1 or 2 arguments, got %d", len(a))
	},
	{model.KindString, "contains"}: func(t model.Value, a []model.Value) (model.Value, error) {
		if len(a) != 1 || a[0].Kind() != model.KindString {
			return model.Null, fmt.Errorf("contains expects one string argument")
		}
		return model.Bool(strings.Contains(t.Str(), a[0].Str())), nil
	},
	{model.KindString, "startsWith"}: func(t model.Value, a []model.Value) (model.Value, error) {
		if len(a) != 1 || a[0].Kind() != model.KindString {
			return model.Null, fmt.Errorf("startsWith expects one string argument")
		}
		return model.Bool(strings.HasPrefix(t.Str(), a[0].Str())), nil
	},
	{model.KindString, "endsWith"}: func(t model.Value, a []model.Value) (model.Value, error) {
		if len(a) != 1 || a[0].Kind() != model.KindString {
			return model.Null, fmt.Errorf("endsWith expects one string argument")
		}
		return model.Bool(strings.HasSuffix(t.Str(), a[0].Str())), nil
	},
	{model.KindList, "size"}: func(t model.Value, a []model.Value) (model.Value, error) {
		return model.Int(int64(len(t.Items()))), nil
	},
	{model.KindList, "isEmpty"}: func(t model.Value, a []model.Value) (model.Value, error) {
		return model.Bool(len(t.Items()) == 0), nil
	},
	{model.KindList, "contains"}: func(t model.Value, a []model.Value) (model.Value, error) {
		if len(a) != 1 {
			return model.Null, fmt.Errorf("contains expects one argument")
		}
		for _, item := range t.Items() {
			if item.Equal(a[0]) {
				return model.Bool(true), nil
			}
		}
		return model.Bool(false), nil
	},
	{model.KindRecord, "size"}: func(t model.Value, a []model.Value) (model.Value, error) {
		return model.Int(int64(t.Record().Len())), nil
	},
}

func intArg(v model.Value) (int64, error) {
	if v.Kind() != model.KindInt {
		return 0, fmt.Errorf("expected an int argument, got %s", v.Kind())
	}
	return v.Int(), nil
}

func evalMethodCall(ctx *EvaluationContext, t methodCallNode) (model.Value, error) {
	target, err := evalNode(ctx, t.target)
	if err != nil {
		return model.Null, err
	}
	if target.IsNull() {
		if t.safe {
			return model.Null, nil
		}
		return model.Null, fmt.Errorf("null dereference calling method %q", t.name)
	}
	args := make([]model.Value, len(t.args))
	for i, a := range t.args {
		v, err := evalNode(ctx, a)
		if err != nil {
			return model.Null, err
		}
		args[i] = v
	}
	fn, ok := methodTable[methodKey{kind: target.Kind(), name: t.name}]
	if !ok {
		return model.Null, fmt.Errorf("unknown method %q on %s", t.name, target.Kind())
	}
	return fn(target, args)
}

// staticFunc implements one allow-listed `T(Type).method(args)` entry. Entries
// outside this table are refused outright (§4.1 "hard sandboxing boundary").
type staticFunc func(args []model.Value) (model.Value, error)

type staticKey struct {
	typeName string
	method   string
}

var staticTable = map[staticKey]staticFunc{
	{"String", "valueOf"}: func(a []model.Value) (model.Value, error) {
		if len(a) != 1 {
			return model.Null, fmt.Errorf("String.valueOf expects one argument")
		}
		return model.String(stringify(a[0])), nil
	},
	{"Integer", "valueOf"}: func(a []model.Value) (model.Value, error) {
		if len(a) != 1 {
			return model.Null, fmt.Errorf("Integer.valueOf expects one argument")
		}
		switch a[0].Kind() {
		case model.KindInt:
			return a[0], nil
		case model.KindFloat:
			return model.Int(int64(a[0].Float64())), nil
		case model.KindString:
			v, err := strconv.ParseInt(strings.TrimSpace(a[0].Str()), 10, 64)
			if err != nil {
				return model.Null, fmt.Errorf("Integer.valueOf: %w", err)
			}
			return model.Int(v), nil
		default:
			return model.Null, fmt.Errorf("Integer.valueOf cannot convert a %s", a[0].Kind())
		}
	},
	{"Double", "valueOf"}: func(a []model.Value) (model.Value, error) {
		if len(a) != 1 {
			return model.Null, fmt.Errorf("Double.valueOf expects one argument")
		}
		switch a[0].Kind() {
		case model.KindFloat:
			return a[0], nil
		case model.KindInt:
			return model.Float(a[0].AsFloat()), nil
		case model.KindString:
			v, err := strconv.ParseFloat(strings.TrimSpace(a[0].Str()), 64)
			if err != nil {
				return model.Null, fmt.Errorf("Double.valueOf: %w", err)
			}
			return model.Float(v), nil
		default:
			return model.Null, fmt.Errorf("Double.valueOf cannot convert a %s", a[0].Kind())
		}
	},
	{"Boolean", "valueOf"}: func(a []model.Value) (model.Value, error) {
		if len(a) != 1 {
			return model.Null, fmt.Errorf("Boolean.valueOf expects one argument")
		}
		if a[0].Kind() == model.KindString {
			return model.Bool(strings.EqualFold(a[0].Str(), "true")), nil
		}
		return model.Bool(a[0].Truthy()), nil
	},
}

func evalStaticCall(ctx *EvaluationContext, t staticCallNode) (model.Value, error) {
	fn, ok := staticTable[staticKey{typeName: t.typeName, method: t.method}]
	if !ok {
		return model.Null, fmt.Errorf("static call %s.%s is not on the sandbox allow-list", t.typeName, t.method)
	}
	args := make([]model.Value, len(t.args))
	for i, a := range t.args {
		v, err := evalNode(ctx, a)
		if err != nil {
			return model.Null, err
		}
		args[i] = v
	}
	return fn(args)
}
