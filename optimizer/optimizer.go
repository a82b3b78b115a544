// Package optimizer applies classical machine-independent optimizations to a
// TAC program.
//
// Six passes run over each function in a fixed order — constant propagation,
// constant folding, algebraic simplification, strength reduction, redundant
// load elimination, dead code elimination — iterating until a full round
// performs no transformation, or until the iteration cap. Passes rewrite
// instructions in place and may mark them dead; instructions are only
// physically removed by the final sweep, so the linked list stays intact
// while passes run.
//
// Propagation runs before folding so newly substituted constants become
// foldable within the same iteration.
package optimizer

import (
	"fmt"
	"io"
	"os"

	"github.com/dr8co/naturec/tac"
)

// maxIterations caps the fixpoint loop per function.
const maxIterations = 10

// Level selects how much optimization runs.
type Level int

const (
	// LevelNone runs no passes.
	LevelNone Level = 0

	// LevelBasic runs constant folding and dead code elimination.
	LevelBasic Level = 1

	// LevelFull runs all six passes.
	LevelFull Level = 2
)

// Stats counts the transformations performed per pass.
type Stats struct {
	// Propagation counts constant propagations.
	Propagation int

	// Folding counts folded constant operations.
	Folding int

	// Algebraic counts algebraic simplifications.
	Algebraic int

	// Strength counts strength reductions.
	Strength int

	// RedundantLoad counts eliminated duplicate loads.
	RedundantLoad int

	// DeadCode counts instructions marked dead.
	DeadCode int

	// Iterations counts fixpoint rounds across all functions.
	Iterations int

	// Removed counts instructions unlinked by the sweep.
	Removed int
}

// Total returns the number of transformations across all passes.
func (s Stats) Total() int {
	return s.Propagation + s.Folding + s.Algebraic + s.Strength + s.RedundantLoad + s.DeadCode
}

// String renders the statistics one pass per line.
func (s Stats) String() string {
	return fmt.Sprintf(
		"propagation: %d\nfolding: %d\nalgebraic: %d\nstrength: %d\nredundant loads: %d\ndead code: %d\niterations: %d\nremoved: %d",
		s.Propagation, s.Folding, s.Algebraic, s.Strength, s.RedundantLoad, s.DeadCode, s.Iterations, s.Removed)
}

// Optimize runs the selected level over the program's main function and each
// user function, then sweeps dead instructions. It returns the accumulated
// statistics.
func Optimize(p *tac.Program, level Level, verbose bool) Stats {
	var stats Stats
	if p == nil || level == LevelNone {
		return stats
	}

	trace := io.Discard
	if verbose {
		trace = os.Stderr
	}

	optimizeFunction(p.Main, level, trace, &stats)
	for _, fn := range p.Functions {
		optimizeFunction(fn, level, trace, &stats)
	}
	return stats
}

// optimizeFunction drives one function to a fixpoint, then sweeps.
func optimizeFunction(f *tac.Function, level Level, trace io.Writer, stats *Stats) {
	for range maxIterations {
		changed := 0
		stats.Iterations++

		if level >= LevelFull {
			n := propagateConstants(f, trace)
			stats.Propagation += n
			changed += n
		}

		n := foldConstants(f, trace)
		stats.Folding += n
		changed += n

		if level >= LevelFull {
			n = simplifyAlgebra(f, trace)
			stats.Algebraic += n
			changed += n

			n = reduceStrength(f, trace)
			stats.Strength += n
			changed += n

			n = eliminateRedundantLoads(f, trace)
			stats.RedundantLoad += n
			changed += n
		}

		n = eliminateDeadCode(f, trace)
		stats.DeadCode += n
		changed += n

		if changed == 0 {
			break
		}
	}

	stats.Removed += sweep(f)
}

// sweep unlinks every instruction marked dead and returns how many were
// removed.
func sweep(f *tac.Function) int {
	removed := 0
	ins := f.First()
	for ins != nil {
		next := ins.Next
		if ins.Dead {
			f.Remove(ins)
			removed++
		}
		ins = next
	}
	return removed
}
