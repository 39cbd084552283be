package expr

import (
	"fmt"

	"github.com/apexrules/apex/internal/apexerr"
	"github.com/apexrules/apex/internal/model"
)

// eval walks n against ctx, wrapping any failure into an EvaluationError that
// carries src, the source text of the whole compiled expression, and the
// cause. The failing sub-expression is not isolated; only the cause's
// message describes it.
func eval(ctx *EvaluationContext, n node, src string) (model.Value, error) {
	v, err := evalNode(ctx, n)
	if err != nil {
		if _, ok := err.(*apexerr.EvaluationError); ok {
			return model.Null, err
		}
		return model.Null, &apexerr.EvaluationError{Expression: src, Cause: err}
	}
	return v, nil
}

func evalNode(ctx *EvaluationContext, n node) (model.Value, error) {
	switch t := n.(type) {
	case literalNode:
		return model.FromNative(t.value), nil

	case varNode:
		v, _ := ctx.Variable(t.name)
		return v, nil

	case identNode:
		v, ok := ctx.Accessor.Read(ctx.Root, t.name)
		if !ok {
			return model.Null, fmt.Errorf("root object does not support property access for %q", t.name)
		}
		return v, nil

	case propertyNode:
		target, err := evalNode(ctx, t.target)
		if err != nil {
			return model.Null, err
		}
		if target.IsNull() {
			if t.safe {
				return model.Null, nil
			}
			return model.Null, fmt.Errorf("null dereference accessing %q", t.name)
		}
		v, ok := ctx.Accessor.Read(target, t.name)
		if !ok {
			return model.Null, fmt.Errorf("cannot access property %q on a %s", t.name, target.Kind())
		}
		return v, nil

	case indexNode:
		target, err := evalNode(ctx, t.target)
		if err != nil {
			return model.Null, err
		}
		idx, err := evalNode(ctx, t.index)
		if err != nil {
			return model.Null, err
		}
		return evalIndex(target, idx)

	case unaryNode:
		return evalUnary(ctx, t)

	case binaryNode:
		return evalBinary(ctx, t)

	case logicalNode:
		return evalLogical(ctx, t)

	case conditionalNode:
		cond, err := evalNode(ctx, t.cond)
		if err != nil {
			return model.Null, err
		}
		if cond.Truthy() {
			return evalNode(ctx, t.then)
		}
		return evalNode(ctx, t.els)

	case methodCallNode:
		return evalMethodCall(ctx, t)

	case staticCallNode:
		return evalStaticCall(ctx, t)
	}
	return model.Null, fmt.Errorf("unhandled node type %T", n)
}

func evalIndex(target, idx model.Value) (model.Value, error) {
	if target.IsNull() {
		return model.Null, fmt.Errorf("null dereference on index access")
	}
	switch target.Kind() {
	case model.KindRecord:
		if idx.Kind() != model.KindString {
			return model.Null, fmt.Errorf("record index must be a string, got %s", idx.Kind())
		}
		return target.Record().Get(idx.Str()), nil
	case model.KindList:
		if idx.Kind() != model.KindInt {
			return model.Null, fmt.Errorf("list index must be an int, got %s", idx.Kind())
		}
		i := idx.Int()
		items := target.Items()
		if i < 0 || i >= int64(len(items)) {
			return model.Null, fmt.Errorf("list index %d out of range (length %d)", i, len(items))
		}
		return items[i], nil
	default:
		return model.Null, fmt.Errorf("cannot index a %s", target.Kind())
	}
}

func evalUnary(ctx *EvaluationContext, t unaryNode) (model.Value, error) {
	v, err := evalNode(ctx, t.operand)
	if err != nil {
		return model.Null, err
	}
	switch t.op {
	case tokBang:
		return model.Bool(!v.Truthy()), nil
	case tokMinus:
		if !v.IsNumeric() {
			return model.Null, fmt.Errorf("unary '-' requires a numeric operand, got %s", v.Kind())
		}
		if v.Kind() == model.KindInt {
			return model.Int(-v.Int()), nil
		}
		return model.Float(-v.Float64()), nil
	}
	return model.Null, fmt.Errorf("unsupported unary operator %s", t.op)
}

func evalLogical(ctx *EvaluationContext, t logicalNode) (model.Value, error) {
	left, err := evalNode(ctx, t.left)
	if err != nil {
		return model.Null, err
	}
	switch t.op {
	case tokAnd:
		if !left.Truthy() {
			return model.Bool(false), nil
		}
		right, err := evalNode(ctx, t.right)
		if err != nil {
			return model.Null, err
		}
		return model.Bool(right.Truthy()), nil
	case tokOr:
		if left.Truthy() {
			return model.Bool(true), nil
		}
		right, err := evalNode(ctx, t.right)
		if err != nil {
			return model.Null, err
		}
		return model.Bool(right.Truthy()), nil
	}
	return model.Null, fmt.Errorf("unsupported logical operator %s", t.op)
}

func evalBinary(ctx *EvaluationContext, t binaryNode) (model.Value, error) {
	left, err := evalNode(ctx, t.left)
	if err != nil {
		return model.Null, err
	}
	right, err := evalNode(ctx, t.right)
	if err != nil {
		return model.Null, err
	}

	switch t.op {
	case tokEq:
		return model.Bool(left.Equal(right)), nil
	case tokNe:
		return model.Bool(!left.Equal(right)), nil
	}

	if t.op == tokPlus && (left.Kind() == model.KindString || right.Kind() == model.KindString) {
		return model.String(stringify(left) + stringify(right)), nil
	}

	switch t.op {
	case tokLt, tokLe, tokGt, tokGe:
		if !left.IsNumeric() || !right.IsNumeric() {
			return model.Null, fmt.Errorf("comparison requires numeric operands, got %s and %s", left.Kind(), right.Kind())
		}
		l, r := left.AsFloat(), right.AsFloat()
		switch t.op {
		case tokLt:
			return model.Bool(l < r), nil
		case tokLe:
			return model.Bool(l <= r), nil
		case tokGt:
			return model.Bool(l > r), nil
		case tokGe:
			return model.Bool(l >= r), nil
		}
	}

	if !left.IsNumeric() || !right.IsNumeric() {
		return model.Null, fmt.Errorf("operator %s requires numeric operands, got %s and %s", t.op, left.Kind(), right.Kind())
	}

	bothInt := left.Kind() == model.KindInt && right.Kind() == model.KindInt
	if bothInt {
		l, r := left.Int(), right.Int()
		switch t.op {
		case tokPlus:
			return model.Int(l + r), nil
		case tokMinus:
			return model.Int(l - r), nil
		case tokStar:
			return model.Int(l * r), nil
		case tokSlash:
			if r == 0 {
				return model.Null, fmt.Errorf("integer division by zero")
			}
			return model.Int(l / r), nil
		}
	}

	l, r := left.AsFloat(), right.AsFloat()
	switch t.op {
	case tokPlus:
		return model.Float(l + r), nil
	case tokMinus:
		return model.Float(l - r), nil
	case tokStar:
		return model.Float(l * r), nil
	case tokSlash:
		if r == 0 {
			return model.Null, fmt.Errorf("division by zero")
		}
		return model.Float(l / r), nil
	}
	return model.Null, fmt.Errorf("unsupported binary operator %s", t.op)
}

func stringify(v model.Value) string {
	switch v.Kind() {
	case model.KindString:
		return v.Str()
	case model.KindNull:
		return ""
	default:
		return fmt.Sprintf("%v", v.Native())
	}
}
