// naturec compiles NatureLang programs into portable C.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dr8co/naturec/analyzer"
	"github.com/dr8co/naturec/ast"
	"github.com/dr8co/naturec/codegen"
	"github.com/dr8co/naturec/cruntime"
	"github.com/dr8co/naturec/frontend"
	"github.com/dr8co/naturec/inspector"
	"github.com/dr8co/naturec/irgen"
	"github.com/dr8co/naturec/optimizer"
)

const version = "0.1.0"

// printUsage displays custom usage information
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `naturec NatureLang Compiler v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    naturec validates a NatureLang program, lowers it through a three-address
    code intermediate representation, optimizes it, and emits portable C.
    The frontend is external: programs arrive as a built AST, either from a
    JSON file or as one of the built-in samples.
    Without any flags, it opens the interactive pipeline inspector.

OPTIONS:
    -f, --file <path>       Compile an AST delivered as JSON
    -s, --sample <name>     Compile a built-in sample program
    -o, --output <path>     Output C file (default: out.c)
    -O <level>              Optimization level: 0, 1, or 2 (default: 2)
    -t, --emit-tac          Print the optimized TAC listing
    -V, --verbose           Trace optimizer transformations
    -i, --inspect           Open the interactive pipeline inspector
    -n, --no-color          Disable colored output in the inspector
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    # Open the pipeline inspector
    %s

    # Compile a sample at full optimization
    %s -s functions -o add.c

    # Compile an AST file without optimization
    %s -f program.ast.json -O 0

    # Show the optimized TAC for a sample
    %s -s folding -t

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	// Set custom usage function
	flag.Usage = printUsage

	// Define command-line flags
	fileFlag := flag.String("file", "", "Compile an AST delivered as JSON")
	sampleFlag := flag.String("sample", "", "Compile a built-in sample program")
	outputFlag := flag.String("output", "out.c", "Output C file")
	levelFlag := flag.Int("O", 2, "Optimization level: 0, 1, or 2")
	emitTacFlag := flag.Bool("emit-tac", false, "Print the optimized TAC listing")
	verboseFlag := flag.Bool("verbose", false, "Trace optimizer transformations")
	inspectFlag := flag.Bool("inspect", false, "Open the interactive pipeline inspector")
	noColorFlag := flag.Bool("no-color", false, "Disable colored output in the inspector")
	versionFlag := flag.Bool("version", false, "Show version information")

	// Define short flag aliases
	flag.StringVar(fileFlag, "f", "", "Compile an AST delivered as JSON")
	flag.StringVar(sampleFlag, "s", "", "Compile a built-in sample program")
	flag.StringVar(outputFlag, "o", "out.c", "Output C file")
	flag.BoolVar(emitTacFlag, "t", false, "Print the optimized TAC listing")
	flag.BoolVar(verboseFlag, "V", false, "Trace optimizer transformations")
	flag.BoolVar(inspectFlag, "i", false, "Open the interactive pipeline inspector")
	flag.BoolVar(noColorFlag, "n", false, "Disable colored output in the inspector")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	// Parse command-line flags
	flag.Parse()

	// Show version information if requested
	if *versionFlag {
		fmt.Printf("naturec NatureLang Compiler v%s\n", version)
		return
	}

	if *levelFlag < 0 || *levelFlag > 2 {
		fmt.Fprintf(os.Stderr, "Invalid optimization level %d (use 0, 1, or 2)\n", *levelFlag)
		os.Exit(1)
	}

	// Open the inspector when asked, or when no input was given
	if *inspectFlag || (*fileFlag == "" && *sampleFlag == "") {
		if err := inspector.Start(inspector.Options{NoColor: *noColorFlag}); err != nil {
			fmt.Fprintf(os.Stderr, "Error running inspector: %s\n", err)
			os.Exit(1)
		}
		return
	}

	program, err := loadProgram(*fileFlag, *sampleFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	compile(program, optimizer.Level(*levelFlag), *outputFlag, *emitTacFlag, *verboseFlag)
}

// loadProgram builds the AST from a JSON file or a built-in sample.
func loadProgram(file, sample string) (*ast.Program, error) {
	if file != "" {
		cleaned := filepath.Clean(file)
		//nolint:gosec // The path comes from the user's own command line
		f, err := os.Open(cleaned)
		if err != nil {
			return nil, fmt.Errorf("error reading AST file: %w", err)
		}
		defer func() { _ = f.Close() }()
		return frontend.DecodeJSON(f)
	}

	s, ok := frontend.LookupSample(sample)
	if !ok {
		names := make([]string, 0, len(frontend.Samples))
		for _, known := range frontend.Samples {
			names = append(names, known.Name)
		}
		return nil, fmt.Errorf("unknown sample %q (available: %v)", sample, names)
	}
	return s.Program(), nil
}

// compile drives the pipeline: analyze, lower, optimize, generate.
// Code generation is strict: it does not run when analysis found errors.
func compile(program *ast.Program, level optimizer.Level, output string, emitTac, verbose bool) {
	result := analyzer.Analyze(program)
	for _, d := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, d)
	}
	if !result.OK() {
		fmt.Fprintf(os.Stderr, "%d error(s), %d warning(s)\n", result.ErrorCount, result.WarningCount)
		os.Exit(1)
	}

	tacProgram := irgen.Build(program, os.Stderr)

	stats := optimizer.Optimize(tacProgram, level, verbose)
	if verbose {
		fmt.Fprintf(os.Stderr, "optimizer:\n%s\n", stats)
	}

	if emitTac {
		fmt.Print(tacProgram.String())
	}

	cSource, err := codegen.Generate(tacProgram)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Code generation error: %s\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(output, []byte(cSource), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %s\n", err)
		os.Exit(1)
	}
	if err := cruntime.WriteTo(filepath.Dir(output)); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing runtime: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (compile with: cc %s %s)\n",
		output, output, filepath.Join(filepath.Dir(output), cruntime.SourceName))
}
