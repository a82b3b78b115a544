package optimizer

import (
	"fmt"
	"io"
	"math"

	"github.com/dr8co/naturec/tac"
	"github.com/dr8co/naturec/types"
)

// propagateConstants replaces temp reads with the constants recently loaded
// into them, within one basic block at a time. The constant table is local
// to one invocation and resets on every block boundary: labels, function
// begins, and calls.
func propagateConstants(f *tac.Function, trace io.Writer) int {
	count := 0
	consts := make(map[int]tac.Operand)

	for ins := f.First(); ins != nil; ins = ins.Next {
		if ins.Dead {
			continue
		}
		switch ins.Op {
		case tac.Label, tac.FuncBegin, tac.Call:
			clear(consts)
		}

		for _, arg := range []*tac.Operand{&ins.Arg1, &ins.Arg2, &ins.Arg3} {
			if !arg.IsTemp() {
				continue
			}
			if value, ok := consts[arg.ID]; ok {
				fmt.Fprintf(trace, "opt: propagate %s into t%d use\n", value, arg.ID)
				*arg = value
				count++
			}
		}

		if ins.Result.IsTemp() {
			delete(consts, ins.Result.ID)
			switch ins.Op {
			case tac.LoadInt, tac.LoadFloat, tac.LoadBool:
				consts[ins.Result.ID] = ins.Arg1
			}
		}
	}
	return count
}

// arithOpcode reports whether the opcode is a foldable binary arithmetic op.
func arithOpcode(op tac.Opcode) bool {
	switch op {
	case tac.Add, tac.Sub, tac.Mul, tac.Div, tac.Mod, tac.Pow:
		return true
	}
	return false
}

// compareOpcode reports whether the opcode is a comparison.
func compareOpcode(op tac.Opcode) bool {
	switch op {
	case tac.Eq, tac.Neq, tac.Lt, tac.Gt, tac.Lte, tac.Gte:
		return true
	}
	return false
}

// numericConst reports whether the operand is an int or float constant.
func numericConst(o tac.Operand) bool {
	return o.Kind == tac.IntConstOperand || o.Kind == tac.FloatConstOperand
}

// floatValue returns the operand's numeric value as a float.
func floatValue(o tac.Operand) float64 {
	if o.Kind == tac.IntConstOperand {
		return float64(o.Int)
	}
	return o.Float
}

// rewriteToLoadInt turns the instruction into a LoadInt of the given value.
func rewriteToLoadInt(ins *tac.Instruction, v int64) {
	ins.Op = tac.LoadInt
	ins.Arg1 = tac.IntConst(v)
	ins.Arg2 = tac.None()
	ins.Arg3 = tac.None()
	ins.Result.Type = types.Number
}

// rewriteToLoadFloat turns the instruction into a LoadFloat of the given value.
func rewriteToLoadFloat(ins *tac.Instruction, v float64) {
	ins.Op = tac.LoadFloat
	ins.Arg1 = tac.FloatConst(v)
	ins.Arg2 = tac.None()
	ins.Arg3 = tac.None()
	ins.Result.Type = types.Decimal
}

// rewriteToLoadBool turns the instruction into a LoadBool of the given value.
func rewriteToLoadBool(ins *tac.Instruction, v bool) {
	ins.Op = tac.LoadBool
	ins.Arg1 = tac.BoolConst(v)
	ins.Arg2 = tac.None()
	ins.Arg3 = tac.None()
	ins.Result.Type = types.Flag
}

// rewriteToAssign turns the instruction into Assign(result, source),
// releasing the other operands.
func rewriteToAssign(ins *tac.Instruction, source tac.Operand) {
	ins.Op = tac.Assign
	ins.Arg1 = source
	ins.Arg2 = tac.None()
	ins.Arg3 = tac.None()
}

// ipow computes integer exponentiation for a non-negative exponent.
func ipow(base, exp int64) int64 {
	result := int64(1)
	for range exp {
		result *= base
	}
	return result
}

// foldConstants evaluates operations whose sources are all constants.
// Division and modulo by zero are never folded; they are left for the
// generated program to deal with.
func foldConstants(f *tac.Function, trace io.Writer) int {
	count := 0

	for ins := f.First(); ins != nil; ins = ins.Next {
		if ins.Dead {
			continue
		}
		folded := false

		switch {
		case arithOpcode(ins.Op) && numericConst(ins.Arg1) && numericConst(ins.Arg2):
			folded = foldArith(ins)

		case compareOpcode(ins.Op) && ins.Arg1.IsConst() && ins.Arg2.IsConst():
			folded = foldCompare(ins)

		case (ins.Op == tac.And || ins.Op == tac.Or) &&
			ins.Arg1.Kind == tac.BoolConstOperand && ins.Arg2.Kind == tac.BoolConstOperand:
			a, b := ins.Arg1.Bool, ins.Arg2.Bool
			if ins.Op == tac.And {
				rewriteToLoadBool(ins, a && b)
			} else {
				rewriteToLoadBool(ins, a || b)
			}
			folded = true

		case ins.Op == tac.Not && ins.Arg1.Kind == tac.BoolConstOperand:
			rewriteToLoadBool(ins, !ins.Arg1.Bool)
			folded = true

		case ins.Op == tac.Neg && numericConst(ins.Arg1):
			if ins.Arg1.Kind == tac.IntConstOperand {
				rewriteToLoadInt(ins, -ins.Arg1.Int)
			} else {
				rewriteToLoadFloat(ins, -ins.Arg1.Float)
			}
			folded = true
		}

		if folded {
			fmt.Fprintf(trace, "opt: fold -> %s\n", ins)
			count++
		}
	}
	return count
}

// foldArith folds one binary arithmetic instruction with numeric constant
// sources. It reports whether folding happened.
func foldArith(ins *tac.Instruction) bool {
	bothInt := ins.Arg1.Kind == tac.IntConstOperand && ins.Arg2.Kind == tac.IntConstOperand

	if bothInt {
		a, b := ins.Arg1.Int, ins.Arg2.Int
		switch ins.Op {
		case tac.Add:
			rewriteToLoadInt(ins, a+b)
		case tac.Sub:
			rewriteToLoadInt(ins, a-b)
		case tac.Mul:
			rewriteToLoadInt(ins, a*b)
		case tac.Div:
			if b == 0 {
				return false
			}
			rewriteToLoadInt(ins, a/b)
		case tac.Mod:
			if b == 0 {
				return false
			}
			rewriteToLoadInt(ins, a%b)
		case tac.Pow:
			if b >= 0 {
				rewriteToLoadInt(ins, ipow(a, b))
			} else {
				rewriteToLoadFloat(ins, math.Pow(float64(a), float64(b)))
			}
		}
		return true
	}

	// Mixed or float operands. Modulo stays unfolded: the analyzer types it
	// as a number, so mixed-mode folding is left to the generated C.
	if ins.Op == tac.Mod {
		return false
	}
	a, b := floatValue(ins.Arg1), floatValue(ins.Arg2)
	switch ins.Op {
	case tac.Add:
		rewriteToLoadFloat(ins, a+b)
	case tac.Sub:
		rewriteToLoadFloat(ins, a-b)
	case tac.Mul:
		rewriteToLoadFloat(ins, a*b)
	case tac.Div:
		if b == 0 {
			return false
		}
		rewriteToLoadFloat(ins, a/b)
	case tac.Pow:
		rewriteToLoadFloat(ins, math.Pow(a, b))
	}
	return true
}

// foldCompare folds one comparison with constant sources.
func foldCompare(ins *tac.Instruction) bool {
	a, b := ins.Arg1, ins.Arg2

	if a.Kind == tac.BoolConstOperand || b.Kind == tac.BoolConstOperand {
		if a.Kind != b.Kind {
			return false
		}
		switch ins.Op {
		case tac.Eq:
			rewriteToLoadBool(ins, a.Bool == b.Bool)
		case tac.Neq:
			rewriteToLoadBool(ins, a.Bool != b.Bool)
		default:
			return false
		}
		return true
	}

	x, y := floatValue(a), floatValue(b)
	switch ins.Op {
	case tac.Eq:
		rewriteToLoadBool(ins, x == y)
	case tac.Neq:
		rewriteToLoadBool(ins, x != y)
	case tac.Lt:
		rewriteToLoadBool(ins, x < y)
	case tac.Gt:
		rewriteToLoadBool(ins, x > y)
	case tac.Lte:
		rewriteToLoadBool(ins, x <= y)
	case tac.Gte:
		rewriteToLoadBool(ins, x >= y)
	}
	return true
}

// constEquals reports whether the operand is an int or float constant with
// the given integer value.
func constEquals(o tac.Operand, v int64) bool {
	switch o.Kind {
	case tac.IntConstOperand:
		return o.Int == v
	case tac.FloatConstOperand:
		return o.Float == float64(v)
	}
	return false
}

// simplifyAlgebra rewrites identity and annihilator patterns:
// x+0, x-0, x*1, x/1, x^1 collapse to copies; x-x, x*0 collapse to zero;
// x^0 collapses to one.
func simplifyAlgebra(f *tac.Function, trace io.Writer) int {
	count := 0

	for ins := f.First(); ins != nil; ins = ins.Next {
		if ins.Dead {
			continue
		}
		simplified := true

		switch ins.Op {
		case tac.Add:
			switch {
			case constEquals(ins.Arg2, 0):
				rewriteToAssign(ins, ins.Arg1)
			case constEquals(ins.Arg1, 0):
				rewriteToAssign(ins, ins.Arg2)
			default:
				simplified = false
			}

		case tac.Sub:
			switch {
			case constEquals(ins.Arg2, 0):
				rewriteToAssign(ins, ins.Arg1)
			case ins.Arg1.Equal(ins.Arg2):
				rewriteToLoadInt(ins, 0)
			default:
				simplified = false
			}

		case tac.Mul:
			switch {
			case constEquals(ins.Arg1, 0) || constEquals(ins.Arg2, 0):
				rewriteToLoadInt(ins, 0)
			case constEquals(ins.Arg2, 1):
				rewriteToAssign(ins, ins.Arg1)
			case constEquals(ins.Arg1, 1):
				rewriteToAssign(ins, ins.Arg2)
			default:
				simplified = false
			}

		case tac.Div:
			if constEquals(ins.Arg2, 1) {
				rewriteToAssign(ins, ins.Arg1)
			} else {
				simplified = false
			}

		case tac.Pow:
			switch {
			case constEquals(ins.Arg2, 0):
				rewriteToLoadInt(ins, 1)
			case constEquals(ins.Arg2, 1):
				rewriteToAssign(ins, ins.Arg1)
			default:
				simplified = false
			}

		default:
			simplified = false
		}

		if simplified {
			fmt.Fprintf(trace, "opt: simplify -> %s\n", ins)
			count++
		}
	}
	return count
}

// reduceStrength replaces expensive operations with cheaper equivalents:
// multiplication by two becomes addition, squaring becomes multiplication.
// Higher powers are left alone.
func reduceStrength(f *tac.Function, trace io.Writer) int {
	count := 0

	for ins := f.First(); ins != nil; ins = ins.Next {
		if ins.Dead {
			continue
		}
		reduced := true

		switch ins.Op {
		case tac.Mul:
			switch {
			case ins.Arg2.Kind == tac.IntConstOperand && ins.Arg2.Int == 2:
				ins.Op = tac.Add
				ins.Arg2 = ins.Arg1
			case ins.Arg1.Kind == tac.IntConstOperand && ins.Arg1.Int == 2:
				ins.Op = tac.Add
				ins.Arg1 = ins.Arg2
			default:
				reduced = false
			}

		case tac.Pow:
			if ins.Arg2.Kind == tac.IntConstOperand && ins.Arg2.Int == 2 {
				ins.Op = tac.Mul
				ins.Arg2 = ins.Arg1
			} else {
				reduced = false
			}

		default:
			reduced = false
		}

		if reduced {
			fmt.Fprintf(trace, "opt: strength -> %s\n", ins)
			count++
		}
	}
	return count
}

// loadKey identifies a constant load for redundancy tracking.
type loadKey struct {
	op   tac.Opcode
	ival int64
	fval float64
	bval bool
}

// eliminateRedundantLoads rewrites a repeated constant load within a basic
// block into a copy of the earlier temp. The tracking table resets on every
// block boundary, including jumps.
func eliminateRedundantLoads(f *tac.Function, trace io.Writer) int {
	count := 0
	seen := make(map[loadKey]tac.Operand)

	for ins := f.First(); ins != nil; ins = ins.Next {
		if ins.Dead {
			continue
		}
		switch ins.Op {
		case tac.Label, tac.FuncBegin, tac.Call, tac.Goto, tac.IfGoto, tac.IfFalseGoto:
			clear(seen)
			continue
		}
		if !ins.Result.IsTemp() {
			continue
		}

		var key loadKey
		switch ins.Op {
		case tac.LoadInt:
			key = loadKey{op: tac.LoadInt, ival: ins.Arg1.Int}
		case tac.LoadFloat:
			key = loadKey{op: tac.LoadFloat, fval: ins.Arg1.Float}
		case tac.LoadBool:
			key = loadKey{op: tac.LoadBool, bval: ins.Arg1.Bool}
		default:
			continue
		}

		if earlier, ok := seen[key]; ok && earlier.ID != ins.Result.ID {
			rewriteToAssign(ins, earlier)
			fmt.Fprintf(trace, "opt: reuse load -> %s\n", ins)
			count++
			continue
		}
		seen[key] = ins.Result
	}
	return count
}

// usesTemp reports whether the instruction reads the given temp id.
func usesTemp(ins *tac.Instruction, id int) bool {
	for _, arg := range []tac.Operand{ins.Arg1, ins.Arg2, ins.Arg3} {
		if arg.IsTemp() && arg.ID == id {
			return true
		}
	}
	return false
}

// eliminateDeadCode marks instructions whose temp result is never read by
// any live instruction. The use scan covers the whole function, ahead and
// behind, so loop back-edges cannot hide a use. Side-effecting instructions
// and stores to named variables are never touched.
func eliminateDeadCode(f *tac.Function, trace io.Writer) int {
	count := 0

	for ins := f.First(); ins != nil; ins = ins.Next {
		if ins.Dead || !ins.Result.IsTemp() || ins.Op.HasSideEffect() {
			continue
		}

		used := false
		for other := f.First(); other != nil; other = other.Next {
			if other == ins || other.Dead {
				continue
			}
			if usesTemp(other, ins.Result.ID) {
				used = true
				break
			}
		}

		if !used {
			ins.Dead = true
			fmt.Fprintf(trace, "opt: dead -> %s\n", ins)
			count++
		}
	}
	return count
}
