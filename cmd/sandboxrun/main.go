// Command sandboxrun parses a small program from source text and runs
// it against a runtime.Sandbox, optionally calling a named function
// afterward and printing its result. It exists to drive the frontend,
// stdlib, and runtime packages from the command line and is not part
// of the sandboxed interpreter core.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/eval"
	"github.com/kestrel-run/kestrel/frontend"
	"github.com/kestrel-run/kestrel/runtime"
	"github.com/kestrel-run/kestrel/stdlib"
	"github.com/kestrel-run/kestrel/values"
)

func main() {
	var (
		srcFile     = flag.String("src", "", "Path to program source file")
		funcName    = flag.String("func", "", "Function to call after running the program (optional)")
		argsStr     = flag.String("args", "", "Comma-separated Long arguments for -func")
		heapBytes   = flag.Uint64("heap", 0, "Heap size in bytes (0 = default)")
		stackBytes  = flag.Uint64("stack", 0, "Scope stack size in bytes (0 = default)")
		timeout     = flag.Duration("timeout", 5*time.Second, "Interpret deadline")
		printTree   = flag.Bool("tree", false, "Print the parsed syntax tree and exit")
		dump        = flag.Bool("dump", false, "Print heap usage and execution state after running")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *srcFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: sandboxrun -src <file.src> [-func name] [-args 1,2,3]")
		fmt.Fprintln(os.Stderr, "       sandboxrun -src <file.src> -tree")
		fmt.Fprintln(os.Stderr, "       sandboxrun -src <file.src> -i  (interactive mode)")
		os.Exit(1)
	}

	data, err := os.ReadFile(*srcFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read file: %v\n", err)
		os.Exit(1)
	}
	src := string(data)

	if *interactive {
		if err := runInteractive(src); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(src, *funcName, *argsStr, uint32(*heapBytes), uint32(*stackBytes), *timeout, *printTree, *dump); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(src, funcName, argsStr string, heapBytes, stackBytes uint32, timeout time.Duration, printTree, dump bool) error {
	tree, err := frontend.Parse(src)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if printTree {
		fmt.Print(dumpTree(tree, 0))
		return nil
	}

	sb, err := runtime.New(runtime.Config{HeapBytes: heapBytes, StackBytes: stackBytes})
	if err != nil {
		return fmt.Errorf("create sandbox: %w", err)
	}
	defer sb.Close()

	stdlib.Register(sb)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Println("Running program...")
	res, err := sb.Interpret(ctx, tree)
	if err != nil {
		return fmt.Errorf("interpret: %w", err)
	}
	if res.Output != "" {
		fmt.Print(res.Output)
	}

	if funcName != "" {
		args, err := parseLongArgs(argsStr)
		if err != nil {
			return err
		}
		fmt.Printf("\nCalling %s(%s)...\n", funcName, argsStr)
		callTree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
			{Kind: ast.Call, Name: funcName, Args: args},
		}}
		res, err = sb.Interpret(ctx, callTree)
		if err != nil {
			return fmt.Errorf("call %s: %w", funcName, err)
		}
		if res.Output != "" {
			fmt.Print(res.Output)
		}
		fmt.Printf("Result: %s\n", formatValue(sb, res.Value))
	} else {
		fmt.Printf("Result: %s\n", formatValue(sb, res.Value))
	}

	if dump {
		used, capacity := sb.UsedHeapBytes()
		fmt.Printf("\nHeap: %d/%d bytes used\nState: %s\n", used, capacity, stateName(res.State))
	}
	return nil
}

func parseLongArgs(s string) ([]*ast.Node, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	nodes := make([]*ast.Node, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid argument %q: %w", p, err)
		}
		nodes[i] = &ast.Node{Kind: ast.Literal, LitValue: v, LitKind: values.Long}
	}
	return nodes, nil
}

func formatValue(sb *runtime.Sandbox, v values.Value) string {
	if v.Kind == values.String && !v.IsNull() {
		return sb.Heap().ReadString(uint32(v.Ptr))
	}
	return values.Stringify(v)
}

func stateName(s eval.State) string {
	switch s {
	case eval.StateRunning:
		return "running"
	case eval.StateSignaling:
		return "signaling"
	case eval.StateFailed:
		return "failed"
	case eval.StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
