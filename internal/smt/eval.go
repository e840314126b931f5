package smt

import (
	"fmt"
	"math/big"
	"strings"
)

// ValueKind discriminates ground values
type ValueKind int

const (
	ValNum ValueKind = iota
	ValBool
	ValCtor
	ValUnmatched
)

// Value is the result of evaluating a ground term
type Value struct {
	Kind ValueKind
	Num  *big.Rat
	Bool bool
	Ctor string
	Args []Value
}

// NumValue wraps an integer
func NumValue(v int64) Value { return Value{Kind: ValNum, Num: big.NewRat(v, 1)} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{Kind: ValBool, Bool: b} }

// CtorValue wraps a constructor application
func CtorValue(name string, args ...Value) Value { return Value{Kind: ValCtor, Ctor: name, Args: args} }

// String renders the value the way ground expressions print
func (v Value) String() string {
	switch v.Kind {
	case ValNum:
		if v.Num.IsInt() {
			return v.Num.Num().String()
		}
		f, _ := v.Num.Float64()
		return fmt.Sprintf("%g", f)
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValCtor:
		if len(v.Args) == 0 {
			return v.Ctor
		}
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = a.String()
		}
		return v.Ctor + "(" + strings.Join(parts, ", ") + ")"
	default:
		return "unmatched"
	}
}

// Interp gives meaning to declared (non-builtin) function symbols
type Interp interface {
	Apply(fn string, args []Value) (Value, error)
}

// Evaluate computes the value of a quantifier-free term whose free
// constants are all bound in env.
func Evaluate(t Term, env map[string]Value, interp Interp) (Value, error) {
	switch n := t.(type) {
	case *IntLit:
		return NumValue(n.Value), nil
	case *RealLit:
		return Value{Kind: ValNum, Num: new(big.Rat).Set(n.Value)}, nil
	case *BoolLit:
		return BoolValue(n.Value), nil
	case *Unmatched:
		return Value{Kind: ValUnmatched}, nil
	case *Const:
		if v, ok := env[n.Name]; ok {
			return v, nil
		}
		if interp != nil {
			return interp.Apply(n.Name, nil)
		}
		return Value{}, fmt.Errorf("unbound constant %s", n.Name)
	case *Ite:
		c, err := Evaluate(n.Cond, env, interp)
		if err != nil {
			return Value{}, err
		}
		if c.Kind != ValBool {
			return Value{}, fmt.Errorf("ite condition is not boolean: %s", c)
		}
		if c.Bool {
			return Evaluate(n.Then, env, interp)
		}
		return Evaluate(n.Else, env, interp)
	case *Quant:
		return Value{}, fmt.Errorf("cannot evaluate quantified term")
	case *App:
		if v, ok, err := shortCircuit(n, env, interp); ok || err != nil {
			return v, err
		}
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			v, err := Evaluate(a, env, interp)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		if v, ok, err := applyBuiltin(n.Fn, args); ok || err != nil {
			return v, err
		}
		if interp == nil {
			return Value{}, fmt.Errorf("no interpretation for %s", n.Fn)
		}
		return interp.Apply(n.Fn, args)
	}
	return Value{}, fmt.Errorf("cannot evaluate %T", t)
}

// shortCircuit evaluates and, or and => left to right, stopping at the
// first argument that decides the result. Later conjuncts may apply
// accessors that are only meaningful once earlier tag tests hold.
func shortCircuit(n *App, env map[string]Value, interp Interp) (Value, bool, error) {
	var stop bool
	switch n.Fn {
	case "and":
		stop = false
	case "or":
		stop = true
	case "=>":
		if len(n.Args) != 2 {
			return Value{}, false, nil
		}
		a, err := Evaluate(n.Args[0], env, interp)
		if err != nil {
			return Value{}, true, err
		}
		if a.Kind != ValBool {
			return Value{}, true, fmt.Errorf("=> expects booleans")
		}
		if !a.Bool {
			return BoolValue(true), true, nil
		}
		b, err := Evaluate(n.Args[1], env, interp)
		return b, true, err
	default:
		return Value{}, false, nil
	}
	for _, arg := range n.Args {
		v, err := Evaluate(arg, env, interp)
		if err != nil {
			return Value{}, true, err
		}
		if v.Kind != ValBool {
			return Value{}, true, fmt.Errorf("%s expects booleans", n.Fn)
		}
		if v.Bool == stop {
			return BoolValue(stop), true, nil
		}
	}
	return BoolValue(!stop), true, nil
}

func applyBuiltin(fn string, args []Value) (Value, bool, error) {
	switch fn {
	case "and", "or", "not", "=>":
		bs := make([]bool, len(args))
		for i, a := range args {
			if a.Kind != ValBool {
				return Value{}, true, fmt.Errorf("%s expects booleans", fn)
			}
			bs[i] = a.Bool
		}
		switch fn {
		case "and":
			r := true
			for _, b := range bs {
				r = r && b
			}
			return BoolValue(r), true, nil
		case "or":
			r := false
			for _, b := range bs {
				r = r || b
			}
			return BoolValue(r), true, nil
		case "not":
			return BoolValue(!bs[0]), true, nil
		default:
			return BoolValue(!bs[0] || bs[1]), true, nil
		}
	case "=":
		return BoolValue(args[0].String() == args[1].String()), true, nil
	case "distinct":
		seen := map[string]bool{}
		for _, a := range args {
			if seen[a.String()] {
				return BoolValue(false), true, nil
			}
			seen[a.String()] = true
		}
		return BoolValue(true), true, nil
	case "+", "-", "*", "/", "<", "<=", ">", ">=", "to_real":
		nums := make([]*big.Rat, len(args))
		for i, a := range args {
			if a.Kind != ValNum {
				return Value{}, true, fmt.Errorf("%s expects numbers", fn)
			}
			nums[i] = a.Num
		}
		return arith(fn, nums)
	}
	return Value{}, false, nil
}

func arith(fn string, nums []*big.Rat) (Value, bool, error) {
	num := func(r *big.Rat) (Value, bool, error) { return Value{Kind: ValNum, Num: r}, true, nil }
	switch fn {
	case "to_real":
		return num(nums[0])
	case "+":
		r := new(big.Rat)
		for _, n := range nums {
			r.Add(r, n)
		}
		return num(r)
	case "*":
		r := big.NewRat(1, 1)
		for _, n := range nums {
			r.Mul(r, n)
		}
		return num(r)
	case "-":
		if len(nums) == 1 {
			return num(new(big.Rat).Neg(nums[0]))
		}
		r := new(big.Rat).Set(nums[0])
		for _, n := range nums[1:] {
			r.Sub(r, n)
		}
		return num(r)
	case "/":
		r := new(big.Rat).Set(nums[0])
		for _, n := range nums[1:] {
			if n.Sign() == 0 {
				return Value{}, true, fmt.Errorf("division by zero")
			}
			r.Quo(r, n)
		}
		return num(r)
	}
	c := nums[0].Cmp(nums[1])
	switch fn {
	case "<":
		return BoolValue(c < 0), true, nil
	case "<=":
		return BoolValue(c <= 0), true, nil
	case ">":
		return BoolValue(c > 0), true, nil
	default:
		return BoolValue(c >= 0), true, nil
	}
}
