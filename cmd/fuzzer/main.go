// Command fuzzer drives an AFL-compatible QEMU forkserver against a target
// binary, mutating a seed corpus under coverage feedback.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	fuzzqemu "github.com/bitterbit/fuzzer-qemu"
	"github.com/bitterbit/fuzzer-qemu/internal/config"
	"github.com/bitterbit/fuzzer-qemu/internal/logx"
)

func main() {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:   "fuzzer <target_binary> [target_args...]",
		Short: "Coverage-guided greybox fuzzer driving an AFL-compatible QEMU forkserver",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, verbose, args[0], args[1:])
		},
	}
	root.Flags().StringVar(&configPath, "config", "./config.ini", "path to the INI configuration file")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, verbose bool, target string, targetArgs []string) error {
	logConfig := logx.DefaultConfig()
	if verbose {
		logConfig.Level = logx.LevelDebug
	}
	logger := logx.NewLogger(logConfig)
	logx.SetDefault(logger)

	cfg, err := config.Parse(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting forkserver", "target", target, "qemu_path", cfg.QEMUPath)
	f, err := fuzzqemu.New(ctx, cfg, fuzzqemu.Options{
		Target:     target,
		TargetArgs: targetArgs,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to start fuzzer", "error", err)
		return err
	}
	defer func() {
		logger.Info("shutting down")
		if err := f.Close(); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	logger.Info("running dry run over seed corpus", "corpus_path", cfg.CorpusPath)
	if err := f.DryRun(); err != nil {
		logger.Error("dry run failed", "error", err)
		return err
	}

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go dumpStacksOnSignal(stackDumpCh, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("fuzzing started, press Ctrl+C to stop")
loop:
	for {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			break loop
		default:
			if err := f.RunOnce(ctx); err != nil {
				logger.Error("fuzz loop iteration failed", "error", err)
				break loop
			}
		}
	}

	snap := f.Metrics().Snapshot()
	logger.Info("run summary",
		"execs_total", snap.ExecsTotal,
		"execs_per_sec", snap.ExecsPerSec,
		"corpus_size", snap.CorpusSize,
		"crashes_total", snap.CrashesTotal,
	)
	return nil
}

// dumpStacksOnSignal writes all goroutine stacks to stderr and to a
// timestamped file, mirroring ehrlich-b-go-ublk's cmd/ublk-mem SIGUSR1
// handler for diagnosing a wedged run.
func dumpStacksOnSignal(ch <-chan os.Signal, logger *logx.Logger) {
	for range ch {
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		fmt.Fprintf(os.Stderr, "\n=== GOROUTINE STACK DUMP ===\n%s\n", buf[:n])

		filename := fmt.Sprintf("fuzzer-stacks-%d.txt", time.Now().Unix())
		if f, err := os.Create(filename); err == nil {
			fmt.Fprintf(f, "goroutine stack dump, pid=%d\n\n", os.Getpid())
			f.Write(buf[:n])
			fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
			pprof.Lookup("goroutine").WriteTo(f, 2)
			f.Close()
			logger.Info("stack dump written", "file", filename)
		}
	}
}
