package optimizer

import (
	"io"
	"testing"

	"github.com/dr8co/naturec/tac"
	"github.com/dr8co/naturec/types"
)

// ins is a shorthand instruction constructor for tests.
func ins(op tac.Opcode, result, arg1, arg2 tac.Operand) *tac.Instruction {
	return &tac.Instruction{Op: op, Result: result, Arg1: arg1, Arg2: arg2, Arg3: tac.None()}
}

// fn builds a function from the given instructions.
func fn(instructions ...*tac.Instruction) *tac.Function {
	f := &tac.Function{ReturnType: types.Nothing}
	for _, i := range instructions {
		f.Append(i)
	}
	return f
}

// prog wraps a main function in a program.
func prog(main *tac.Function) *tac.Program {
	p := tac.NewProgram()
	for i := main.First(); i != nil; {
		next := i.Next
		main.Remove(i)
		p.Main.Append(i)
		i = next
	}
	return p
}

func temp(id int) tac.Operand     { return tac.Temp(id, types.Number) }
func flagTemp(id int) tac.Operand { return tac.Temp(id, types.Flag) }

// TestFoldIntArithmetic checks integer folding across the operators.
func TestFoldIntArithmetic(t *testing.T) {
	tests := []struct {
		desc string
		op   tac.Opcode
		a, b int64
		want int64
	}{
		{"addition", tac.Add, 3, 4, 7},
		{"subtraction", tac.Sub, 10, 4, 6},
		{"multiplication", tac.Mul, 6, 7, 42},
		{"division", tac.Div, 20, 4, 5},
		{"modulo", tac.Mod, 7, 3, 1},
		{"power", tac.Pow, 2, 10, 1024},
		{"power of zero", tac.Pow, 9, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			f := fn(ins(tt.op, temp(0), tac.IntConst(tt.a), tac.IntConst(tt.b)))
			if got := foldConstants(f, io.Discard); got != 1 {
				t.Fatalf("expected 1 fold, got %d", got)
			}
			folded := f.First()
			if folded.Op != tac.LoadInt {
				t.Fatalf("expected LoadInt after folding, got %s", folded.Op)
			}
			if folded.Arg1.Int != tt.want {
				t.Errorf("folded value: got %d, want %d", folded.Arg1.Int, tt.want)
			}
			if !folded.Arg2.IsNone() {
				t.Errorf("second operand should be released")
			}
		})
	}
}

// TestFoldRefusesZeroDivision checks that division and modulo by zero are
// never folded.
func TestFoldRefusesZeroDivision(t *testing.T) {
	for _, op := range []tac.Opcode{tac.Div, tac.Mod} {
		f := fn(ins(op, temp(0), tac.IntConst(1), tac.IntConst(0)))
		if got := foldConstants(f, io.Discard); got != 0 {
			t.Errorf("%s by zero should not fold, got %d folds", op, got)
		}
		if f.First().Op != op {
			t.Errorf("%s by zero should be left untouched", op)
		}
	}
}

// TestFoldMixedArithmetic checks float and mixed folding.
func TestFoldMixedArithmetic(t *testing.T) {
	f := fn(ins(tac.Add, temp(0), tac.IntConst(1), tac.FloatConst(2.5)))
	if got := foldConstants(f, io.Discard); got != 1 {
		t.Fatalf("expected 1 fold, got %d", got)
	}
	folded := f.First()
	if folded.Op != tac.LoadFloat || folded.Arg1.Float != 3.5 {
		t.Errorf("mixed addition should fold to LoadFloat 3.5, got %s", folded)
	}

	// Modulo with a decimal operand stays unfolded.
	f = fn(ins(tac.Mod, temp(0), tac.FloatConst(7.5), tac.IntConst(2)))
	if got := foldConstants(f, io.Discard); got != 0 {
		t.Errorf("decimal modulo should not fold, got %d folds", got)
	}
}

// TestFoldComparisonsAndLogic checks comparison and boolean folding.
func TestFoldComparisonsAndLogic(t *testing.T) {
	tests := []struct {
		desc string
		in   *tac.Instruction
		want bool
	}{
		{"less-than", ins(tac.Lt, flagTemp(0), tac.IntConst(3), tac.IntConst(4)), true},
		{"greater-equal", ins(tac.Gte, flagTemp(0), tac.IntConst(3), tac.IntConst(4)), false},
		{"equality", ins(tac.Eq, flagTemp(0), tac.IntConst(5), tac.IntConst(5)), true},
		{"conjunction", ins(tac.And, flagTemp(0), tac.BoolConst(true), tac.BoolConst(false)), false},
		{"disjunction", ins(tac.Or, flagTemp(0), tac.BoolConst(true), tac.BoolConst(false)), true},
		{"negation", ins(tac.Not, flagTemp(0), tac.BoolConst(true), tac.None()), false},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			f := fn(tt.in)
			if got := foldConstants(f, io.Discard); got != 1 {
				t.Fatalf("expected 1 fold, got %d", got)
			}
			folded := f.First()
			if folded.Op != tac.LoadBool || folded.Arg1.Bool != tt.want {
				t.Errorf("got %s, want LoadBool %t", folded, tt.want)
			}
		})
	}
}

// TestPropagation checks in-block constant propagation and its boundaries.
func TestPropagation(t *testing.T) {
	t.Run("within a block", func(t *testing.T) {
		f := fn(
			ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
			ins(tac.LoadInt, temp(1), tac.IntConst(4), tac.None()),
			ins(tac.Add, temp(2), temp(0), temp(1)),
		)
		if got := propagateConstants(f, io.Discard); got != 2 {
			t.Fatalf("expected 2 propagations, got %d", got)
		}
		add := f.Last()
		if add.Arg1.Kind != tac.IntConstOperand || add.Arg2.Kind != tac.IntConstOperand {
			t.Errorf("both sources should be constants now: %s", add)
		}
	})

	t.Run("labels clear the table", func(t *testing.T) {
		f := fn(
			ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
			ins(tac.Label, tac.None(), tac.LabelRef(0), tac.None()),
			ins(tac.Assign, tac.Var("x", types.Number), temp(0), tac.None()),
		)
		if got := propagateConstants(f, io.Discard); got != 0 {
			t.Errorf("propagation across a label should not happen, got %d", got)
		}
	})

	t.Run("calls clear the table", func(t *testing.T) {
		f := fn(
			ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
			ins(tac.Call, temp(1), tac.FuncRef("f"), tac.IntConst(0)),
			ins(tac.Assign, tac.Var("x", types.Number), temp(0), tac.None()),
		)
		if got := propagateConstants(f, io.Discard); got != 0 {
			t.Errorf("propagation across a call should not happen, got %d", got)
		}
	})
}

// TestAlgebraicSimplification checks the identity and annihilator rewrites.
func TestAlgebraicSimplification(t *testing.T) {
	x := tac.Var("x", types.Number)

	tests := []struct {
		desc     string
		in       *tac.Instruction
		wantOp   tac.Opcode
		wantArg1 tac.Operand
	}{
		{"x+0", ins(tac.Add, temp(0), x, tac.IntConst(0)), tac.Assign, x},
		{"0+x", ins(tac.Add, temp(0), tac.IntConst(0), x), tac.Assign, x},
		{"x-0", ins(tac.Sub, temp(0), x, tac.IntConst(0)), tac.Assign, x},
		{"x-x", ins(tac.Sub, temp(0), x, x), tac.LoadInt, tac.IntConst(0)},
		{"x*0", ins(tac.Mul, temp(0), x, tac.IntConst(0)), tac.LoadInt, tac.IntConst(0)},
		{"0*x", ins(tac.Mul, temp(0), tac.IntConst(0), x), tac.LoadInt, tac.IntConst(0)},
		{"x*1", ins(tac.Mul, temp(0), x, tac.IntConst(1)), tac.Assign, x},
		{"1*x", ins(tac.Mul, temp(0), tac.IntConst(1), x), tac.Assign, x},
		{"x/1", ins(tac.Div, temp(0), x, tac.IntConst(1)), tac.Assign, x},
		{"x^0", ins(tac.Pow, temp(0), x, tac.IntConst(0)), tac.LoadInt, tac.IntConst(1)},
		{"x^1", ins(tac.Pow, temp(0), x, tac.IntConst(1)), tac.Assign, x},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			f := fn(tt.in)
			if got := simplifyAlgebra(f, io.Discard); got != 1 {
				t.Fatalf("expected 1 simplification, got %d", got)
			}
			got := f.First()
			if got.Op != tt.wantOp {
				t.Fatalf("opcode: got %s, want %s", got.Op, tt.wantOp)
			}
			if !got.Arg1.Equal(tt.wantArg1) {
				t.Errorf("source: got %s, want %s", got.Arg1, tt.wantArg1)
			}
			if !got.Arg2.IsNone() {
				t.Errorf("second operand should be released")
			}
		})
	}
}

// TestStrengthReduction checks the cheaper-equivalent rewrites.
func TestStrengthReduction(t *testing.T) {
	x := tac.Var("x", types.Number)

	t.Run("x*2 becomes x+x", func(t *testing.T) {
		f := fn(ins(tac.Mul, temp(0), x, tac.IntConst(2)))
		if got := reduceStrength(f, io.Discard); got != 1 {
			t.Fatalf("expected 1 reduction, got %d", got)
		}
		got := f.First()
		if got.Op != tac.Add || !got.Arg1.Equal(x) || !got.Arg2.Equal(x) {
			t.Errorf("got %s, want x+x", got)
		}
	})

	t.Run("2*x becomes x+x", func(t *testing.T) {
		f := fn(ins(tac.Mul, temp(0), tac.IntConst(2), x))
		if got := reduceStrength(f, io.Discard); got != 1 {
			t.Fatalf("expected 1 reduction, got %d", got)
		}
		got := f.First()
		if got.Op != tac.Add || !got.Arg1.Equal(x) || !got.Arg2.Equal(x) {
			t.Errorf("got %s, want x+x", got)
		}
	})

	t.Run("x^2 becomes x*x", func(t *testing.T) {
		f := fn(ins(tac.Pow, temp(0), x, tac.IntConst(2)))
		if got := reduceStrength(f, io.Discard); got != 1 {
			t.Fatalf("expected 1 reduction, got %d", got)
		}
		got := f.First()
		if got.Op != tac.Mul || !got.Arg1.Equal(x) || !got.Arg2.Equal(x) {
			t.Errorf("got %s, want x*x", got)
		}
	})

	t.Run("higher powers stay", func(t *testing.T) {
		f := fn(ins(tac.Pow, temp(0), x, tac.IntConst(3)))
		if got := reduceStrength(f, io.Discard); got != 0 {
			t.Errorf("x^3 should be left alone, got %d reductions", got)
		}
	})
}

// TestRedundantLoadElimination checks duplicate-load rewriting and its
// block boundaries.
func TestRedundantLoadElimination(t *testing.T) {
	t.Run("duplicate in one block", func(t *testing.T) {
		f := fn(
			ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
			ins(tac.LoadInt, temp(1), tac.IntConst(3), tac.None()),
		)
		if got := eliminateRedundantLoads(f, io.Discard); got != 1 {
			t.Fatalf("expected 1 elimination, got %d", got)
		}
		second := f.Last()
		if second.Op != tac.Assign || second.Arg1.ID != 0 {
			t.Errorf("second load should copy the first temp, got %s", second)
		}
	})

	t.Run("jump resets tracking", func(t *testing.T) {
		f := fn(
			ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
			ins(tac.Goto, tac.None(), tac.LabelRef(0), tac.None()),
			ins(tac.LoadInt, temp(1), tac.IntConst(3), tac.None()),
		)
		if got := eliminateRedundantLoads(f, io.Discard); got != 0 {
			t.Errorf("loads in different blocks should both stay, got %d", got)
		}
	})

	t.Run("different values both stay", func(t *testing.T) {
		f := fn(
			ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
			ins(tac.LoadInt, temp(1), tac.IntConst(4), tac.None()),
		)
		if got := eliminateRedundantLoads(f, io.Discard); got != 0 {
			t.Errorf("distinct values should both stay, got %d", got)
		}
	})
}

// TestDeadCodeElimination checks liveness marking and the preservation
// rules.
func TestDeadCodeElimination(t *testing.T) {
	t.Run("unused load dies", func(t *testing.T) {
		f := fn(
			ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
			ins(tac.LoadInt, temp(1), tac.IntConst(4), tac.None()),
			ins(tac.Display, tac.None(), temp(1), tac.None()),
		)
		if got := eliminateDeadCode(f, io.Discard); got != 1 {
			t.Fatalf("expected 1 dead instruction, got %d", got)
		}
		if !f.First().Dead {
			t.Errorf("the unused load should be marked dead")
		}
		if f.First().Next.Dead {
			t.Errorf("the displayed load must stay live")
		}
	})

	t.Run("variable stores are preserved", func(t *testing.T) {
		f := fn(
			ins(tac.Assign, tac.Var("x", types.Number), tac.IntConst(1), tac.None()),
		)
		if got := eliminateDeadCode(f, io.Discard); got != 0 {
			t.Errorf("stores to named variables must never die, got %d", got)
		}
	})

	t.Run("uses behind a back edge count", func(t *testing.T) {
		// The use of t0 appears before its write, as a loop back edge
		// would arrange it.
		f := fn(
			ins(tac.Label, tac.None(), tac.LabelRef(0), tac.None()),
			ins(tac.Display, tac.None(), temp(0), tac.None()),
			ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
			ins(tac.Goto, tac.None(), tac.LabelRef(0), tac.None()),
		)
		if got := eliminateDeadCode(f, io.Discard); got != 0 {
			t.Errorf("a use earlier in the list must keep the write alive, got %d", got)
		}
	})
}

// TestFixpointScenario runs the canonical add-and-display program through
// the full pipeline and checks that one Display of the folded constant
// remains.
func TestFixpointScenario(t *testing.T) {
	p := prog(fn(
		ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
		ins(tac.LoadInt, temp(1), tac.IntConst(4), tac.None()),
		ins(tac.Add, temp(2), temp(0), temp(1)),
		ins(tac.Display, tac.None(), temp(2), tac.None()),
	))

	stats := Optimize(p, LevelFull, false)

	if p.Main.Len() != 1 {
		t.Fatalf("expected a single surviving instruction, got %d:\n%s", p.Main.Len(), p.Main)
	}
	display := p.Main.First()
	if display.Op != tac.Display {
		t.Fatalf("survivor should be the Display, got %s", display.Op)
	}
	if display.Arg1.Kind != tac.IntConstOperand || display.Arg1.Int != 7 {
		t.Errorf("Display should show the folded constant 7, got %s", display.Arg1)
	}
	if stats.Folding == 0 || stats.Propagation == 0 || stats.DeadCode == 0 {
		t.Errorf("expected work from folding, propagation, and DCE: %+v", stats)
	}
	if stats.Removed != 3 {
		t.Errorf("sweep should remove the three dead instructions, got %d", stats.Removed)
	}
}

// TestLevels checks the pass selection per level.
func TestLevels(t *testing.T) {
	build := func() *tac.Program {
		return prog(fn(
			ins(tac.LoadInt, temp(0), tac.IntConst(3), tac.None()),
			ins(tac.LoadInt, temp(1), tac.IntConst(4), tac.None()),
			ins(tac.Add, temp(2), temp(0), temp(1)),
			ins(tac.Display, tac.None(), temp(2), tac.None()),
		))
	}

	t.Run("level 0 changes nothing", func(t *testing.T) {
		p := build()
		stats := Optimize(p, LevelNone, false)
		if stats.Total() != 0 || p.Main.Len() != 4 {
			t.Errorf("level 0 must leave the program alone: %+v", stats)
		}
	})

	t.Run("level 1 cannot fold through temps", func(t *testing.T) {
		// Folding needs constant sources; without propagation the Add's
		// operands stay temps, and every load stays live.
		p := build()
		stats := Optimize(p, LevelBasic, false)
		if stats.Propagation != 0 {
			t.Errorf("level 1 must not propagate: %+v", stats)
		}
		if p.Main.Len() != 4 {
			t.Errorf("level 1 should leave this program intact, got %d instructions", p.Main.Len())
		}
	})

	t.Run("level 2 collapses the program", func(t *testing.T) {
		p := build()
		Optimize(p, LevelFull, false)
		if p.Main.Len() != 1 {
			t.Errorf("level 2 should collapse to one Display, got %d", p.Main.Len())
		}
	})
}

// TestFixpointTerminates checks the iteration cap over a loop-shaped
// function.
func TestFixpointTerminates(t *testing.T) {
	p := prog(fn(
		ins(tac.LoadInt, temp(0), tac.IntConst(0), tac.None()),
		ins(tac.Label, tac.None(), tac.LabelRef(0), tac.None()),
		ins(tac.Gte, flagTemp(1), temp(0), tac.IntConst(10)),
		ins(tac.IfGoto, tac.None(), flagTemp(1), tac.LabelRef(1)),
		ins(tac.LoadInt, temp(2), tac.IntConst(1), tac.None()),
		ins(tac.Add, temp(0), temp(0), temp(2)),
		ins(tac.Goto, tac.None(), tac.LabelRef(0), tac.None()),
		ins(tac.Label, tac.None(), tac.LabelRef(1), tac.None()),
	))

	stats := Optimize(p, LevelFull, false)
	if stats.Iterations > maxIterations {
		t.Errorf("fixpoint should finish within %d iterations, took %d", maxIterations, stats.Iterations)
	}
}

// TestPassesNeverAddInstructions checks that passes only rewrite or mark
// dead.
func TestPassesNeverAddInstructions(t *testing.T) {
	p := prog(fn(
		ins(tac.LoadInt, temp(0), tac.IntConst(2), tac.None()),
		ins(tac.LoadInt, temp(1), tac.IntConst(2), tac.None()),
		ins(tac.Mul, temp(2), temp(0), temp(1)),
		ins(tac.Display, tac.None(), temp(2), tac.None()),
	))
	before := p.Main.Len()
	Optimize(p, LevelFull, false)
	if p.Main.Len() > before {
		t.Errorf("optimization grew the program from %d to %d instructions", before, p.Main.Len())
	}
}
