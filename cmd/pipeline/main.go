package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/scout-scoring/internal/app"
	"github.com/riskibarqy/scout-scoring/internal/config"
	idgen "github.com/riskibarqy/scout-scoring/internal/platform/id"
	"github.com/riskibarqy/scout-scoring/internal/usecase"
)

const usage = `usage:
  pipeline run [-from <stage>] [-run-id <id>]
  pipeline stages
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "stages":
		for _, stage := range usecase.Stages {
			fmt.Fprintln(stdout, stage)
		}
		return 0
	case "run":
		return runPipeline(args[1:], stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
}

func runPipeline(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fromFlag := fs.String("from", string(usecase.StageLoad), "stage to resume from")
	runIDFlag := fs.String("run-id", "", "run identifier (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	from, err := usecase.ParseStage(*fromFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	runID := *runIDFlag
	if runID == "" {
		runID, err = idgen.NewRunIDGenerator().NewID()
		if err != nil {
			fmt.Fprintf(stderr, "generate run id: %v\n", err)
			return 1
		}
	}

	a, err := app.New(cfg, runID)
	if err != nil {
		fmt.Fprintf(stderr, "build app: %v\n", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			fmt.Fprintf(stderr, "shutdown: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := a.Execute(ctx, from); err != nil {
		var stageErr *usecase.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprintf(stderr, "pipeline failed at stage %s: %v\n", stageErr.Stage, stageErr.Err)
		} else {
			fmt.Fprintf(stderr, "pipeline failed: %v\n", err)
		}
		return 1
	}
	return 0
}
