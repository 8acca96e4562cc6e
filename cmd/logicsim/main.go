// Command logicsim runs YAML scenarios against the logic engine and prints
// the lifecycle transcript.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/goliatone/go-logic/scenario"
)

type cli struct {
	LogLevel string `help:"Engine log level." default:"error" enum:"trace,debug,info,warn,error"`
	LogJSON  bool   `help:"Emit engine logs as JSON." name:"log-json"`

	Run   runCmd   `cmd:"" help:"Run a scenario and print its transcript."`
	Check checkCmd `cmd:"" help:"Validate a scenario file."`
}

type env struct {
	out    io.Writer
	errOut io.Writer
	cli    *cli
}

type runCmd struct {
	File    string        `arg:"" help:"Scenario YAML file."`
	Format  string        `help:"Transcript format." default:"text" enum:"text,json"`
	Timeout time.Duration `help:"How long to wait for the engine to settle." default:"5s"`
	Spans   bool          `help:"Print one OpenTelemetry span summary per lifecycle to stderr."`
}

func (c *runCmd) Run(e *env) error {
	sc, err := scenario.Load(c.File)
	if err != nil {
		return err
	}
	opts := []scenario.RunOption{
		scenario.WithLogger(newLogger(e.errOut, e.cli.LogLevel, e.cli.LogJSON)),
		scenario.WithTimeout(c.Timeout),
	}
	if c.Spans {
		tp := newSpanProvider(e.errOut)
		defer tp.Shutdown(context.Background())
		opts = append(opts, scenario.WithTracerProvider(tp))
	}
	res, runErr := scenario.Run(context.Background(), sc, opts...)
	if res != nil {
		if err := scenario.Format(e.out, res, c.Format); err != nil {
			return err
		}
	}
	return runErr
}

type checkCmd struct {
	File string `arg:"" help:"Scenario YAML file."`
}

func (c *checkCmd) Run(e *env) error {
	sc, err := scenario.Load(c.File)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s: ok (%d logics, %d actions)\n", sc.Name, len(sc.Logics), len(sc.Actions))
	return nil
}

func run(args []string, stdout, stderr io.Writer) int {
	var root cli
	exitCode := -1
	parser, err := kong.New(&root,
		kong.Name("logicsim"),
		kong.Description("Run action lifecycle scenarios."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, err := parser.Parse(args)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if err := ctx.Run(&env{out: stdout, errOut: stderr, cli: &root}); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
