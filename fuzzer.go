package fuzzqemu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitterbit/fuzzer-qemu/internal/config"
	"github.com/bitterbit/fuzzer-qemu/internal/constants"
	"github.com/bitterbit/fuzzer-qemu/internal/corpus"
	"github.com/bitterbit/fuzzer-qemu/internal/elfsym"
	"github.com/bitterbit/fuzzer-qemu/internal/executor"
	"github.com/bitterbit/fuzzer-qemu/internal/feedback"
	"github.com/bitterbit/fuzzer-qemu/internal/ferrors"
	"github.com/bitterbit/fuzzer-qemu/internal/forkserver"
	"github.com/bitterbit/fuzzer-qemu/internal/interfaces"
	"github.com/bitterbit/fuzzer-qemu/internal/metrics"
	"github.com/bitterbit/fuzzer-qemu/internal/mutate"
	"github.com/bitterbit/fuzzer-qemu/internal/observer"
	"github.com/bitterbit/fuzzer-qemu/internal/outfile"
	"github.com/bitterbit/fuzzer-qemu/internal/power"
	"github.com/bitterbit/fuzzer-qemu/internal/statsink"
)

// favoredQueueLen bounds the scheduler's length x time minimizer favored
// subset.
const favoredQueueLen = 20

// Fuzzer orchestrates every core subsystem into the fuzz loop described by
// the mutational stage and scheduler components: one Forkserver, one
// Executor, two independent feedback states (queue acceptance and crash
// deduplication) sharing the same observer, a corpus Queue and Solutions
// writer, and a Scheduler picking what runs next. Modeled on
// ehrlich-b-go-ublk's Device, which composes a controller, queue runners,
// and a metrics/observer pair the same way.
type Fuzzer struct {
	cfg    *config.Config
	log    interfaces.Logger
	fs     *forkserver.Forkserver
	ex     *executor.Executor
	shm    *observer.SharedMap
	out    *outfile.OutFile
	mut    interfaces.Mutator

	queueState    *feedback.State
	queueFeedback *feedback.BitmapFeedback
	crashState    *feedback.State
	crashFeedback *feedback.BitmapFeedback

	queue     *corpus.Queue
	queueW    *corpus.QueueWriter
	solutions *corpus.Solutions
	scheduler *corpus.Scheduler

	// obs is the narrow Observer seam the hot loop calls through, so the
	// loop itself never depends on the concrete Prometheus metrics type —
	// mirroring ehrlich-b-go-ublk's internal/queue/runner.go, whose runner
	// holds an "observer interfaces.Observer" field rather than a concrete
	// metrics type. metrics is kept alongside it for the accessors
	// (Registry, Snapshot) that are outside the Observer contract.
	metrics *metrics.Metrics
	obs     interfaces.Observer
	stats   *statsink.PlotSink

	fuzzLevel int
}

// Options are the run-time knobs not carried by config.Config: the target
// binary and its argv, and an optional logger.
type Options struct {
	Target     string
	TargetArgs []string
	Logger     interfaces.Logger
}

// New constructs every subsystem and starts the emulator, but does not run
// the dry run or the fuzz loop yet.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Fuzzer, error) {
	shm, err := observer.New(cfg.MapSize)
	if err != nil {
		return nil, fmt.Errorf("fuzzer: %w", err)
	}

	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("fuzzer-qemu-input-%d", os.Getpid()))
	out, err := outfile.New(outPath, constants.DefaultOutFileMaxLen)
	if err != nil {
		shm.Close()
		return nil, fmt.Errorf("fuzzer: %w", err)
	}

	var persistentAddr string
	if cfg.PersistentSym != "" {
		sym, err := elfsym.Resolve(opts.Target, cfg.PersistentSym)
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Warn("persistent symbol not resolved, running without persistent mode", "error", err)
			}
		} else {
			persistentAddr = forkserver.PersistentAddr(sym)
		}
	}

	argv := outfile.SubstituteArgv(opts.TargetArgs, out.Path())
	fs := forkserver.New(forkserver.Config{
		QEMUPath:       cfg.QEMUPath,
		Target:         opts.Target,
		TargetArgs:     argv,
		LDLibraryPath:  cfg.LDLibraryPath,
		PersistentAddr: persistentAddr,
		ShmEnv:         shm.EnvEntry(),
		Logger:         opts.Logger,
	})
	if err := fs.Start(ctx); err != nil {
		out.Close()
		shm.Close()
		return nil, fmt.Errorf("fuzzer: start forkserver: %w", err)
	}

	ex := executor.New(fs, out, shm, opts.Logger)

	numEdges := cfg.MapSize * 8
	queueState := feedback.NewState(numEdges)
	crashState := feedback.NewState(numEdges)

	solutions, err := corpus.NewSolutions(cfg.CrashPath)
	if err != nil {
		return nil, fmt.Errorf("fuzzer: %w", err)
	}

	var queueW *corpus.QueueWriter
	if cfg.QueuePath != "" {
		queueW, err = corpus.NewQueueWriter(cfg.QueuePath)
		if err != nil {
			return nil, fmt.Errorf("fuzzer: %w", err)
		}
	}

	var stats *statsink.PlotSink
	if cfg.PlotPath != "" {
		stats, err = statsink.New(cfg.PlotPath)
		if err != nil {
			return nil, fmt.Errorf("fuzzer: %w", err)
		}
	}

	q := corpus.NewQueue()
	m := metrics.New()

	f := &Fuzzer{
		cfg:           cfg,
		log:           opts.Logger,
		fs:            fs,
		ex:            ex,
		shm:           shm,
		out:           out,
		mut:           mutate.NewHavoc(constants.DefaultOutFileMaxLen),
		queueState:    queueState,
		queueFeedback: feedback.NewBitmapFeedback(queueState),
		crashState:    crashState,
		crashFeedback: feedback.NewBitmapFeedback(crashState),
		queue:         q,
		queueW:        queueW,
		solutions:     solutions,
		scheduler:     corpus.NewScheduler(q, favoredQueueLen),
		metrics:       m,
		obs:           m,
		stats:         stats,
		fuzzLevel:     1,
	}
	return f, nil
}

// Metrics returns the Prometheus-backed metrics sink.
func (f *Fuzzer) Metrics() *metrics.Metrics { return f.metrics }

// Close tears down the forkserver, outfile, and shared map.
func (f *Fuzzer) Close() error {
	if f.stats != nil {
		f.stats.Close()
	}
	_ = f.out.Close()
	_ = f.shm.Close()
	return f.fs.Close()
}

// DryRun loads every seed file under cfg.CorpusPath, executes each once, and
// feeds its coverage through the queue-acceptance feedback. A seed that
// errors or fails to execute is logged and skipped rather than treated as
// fatal, matching original_source/fuzzer/src/bin/fuzzer.rs's startup dry run.
func (f *Fuzzer) DryRun() error {
	entries, err := os.ReadDir(f.cfg.CorpusPath)
	if err != nil {
		return ferrors.Wrap("dry_run", ferrors.ErrCodeSeedIO, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(f.cfg.CorpusPath, e.Name())
		input, err := os.ReadFile(path)
		if err != nil {
			f.warn("dry run: skipping unreadable seed", "path", path, "error", ferrors.Wrap("dry_run", ferrors.ErrCodeSeedIO, err))
			continue
		}
		if err := f.executeAndAccept(input); err != nil {
			f.warn("dry run: skipping seed", "path", path, "error", err)
		}
	}
	return nil
}

// executeAndAccept runs input once and, if it is an OK execution that
// exercises new coverage, adds it to the queue.
func (f *Fuzzer) executeAndAccept(input []byte) error {
	kind, err := f.ex.RunTarget(input)
	if err != nil {
		return err
	}
	if kind != forkserver.ExitOK {
		return fmt.Errorf("seed crashed on dry run")
	}
	interesting, err := f.queueFeedback.Consume(f.ex.Map())
	if err != nil {
		return err
	}
	if !interesting {
		f.queueFeedback.DiscardMetadata()
		return nil
	}
	md, err := f.queueFeedback.MarkAccepted()
	if err != nil {
		return err
	}
	f.addToQueue(input, md, f.queueFeedback.PathHash(), 0)
	return nil
}

func (f *Fuzzer) addToQueue(input []byte, md *feedback.MapIndexesMetadata, pathHash uint64, execTimeNs uint64) *corpus.Testcase {
	tc := &corpus.Testcase{
		Input:      append([]byte(nil), input...),
		ExecTimeNs: float64(execTimeNs),
		Edges:      md.List,
		PathHash:   pathHash,
		VisitCount: f.queueState.VisitCount(pathHash),
	}
	f.queue.Add(tc)
	if f.queueW != nil {
		if _, err := f.queueW.Write(tc); err != nil {
			f.warn("failed to persist queue entry", "error", err)
		}
	}
	f.obs.ObserveNewCoverage(uint64(f.queueState.GetAllTimeCount()))
	f.obs.ObserveCorpusSize(f.queue.Len())
	return tc
}

// RunOnce asks the scheduler for the next queued input, runs it through the
// power stage's mutate-evaluate rounds, and returns. It is the single step
// of the cooperative fuzz loop; callers loop calling it until ctx is done.
func (f *Fuzzer) RunOnce(ctx context.Context) error {
	idx, ok := f.scheduler.Next()
	if !ok {
		return fmt.Errorf("fuzzer: queue is empty, nothing to schedule")
	}
	tc := f.queue.Get(idx)

	in := power.Inputs{
		Edges:         len(tc.Edges),
		AvgEdges:      f.queue.AvgEdges(),
		ExecTimeNs:    tc.ExecTimeNs,
		AvgExecTimeNs: f.queue.AvgExecTime(),
		FuzzLevel:     f.fuzzLevel,
		VisitCount:    f.queueState.VisitCount(tc.PathHash),
	}
	n := power.Iterations(in)

	for round := 0; round < n; round++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := f.runRound(tc, round); err != nil {
			return err
		}
	}
	f.fuzzLevel++
	return nil
}

func (f *Fuzzer) runRound(tc *corpus.Testcase, round int) error {
	mutated := f.mut.Mutate(tc.Input, round)

	start := time.Now()
	kind, err := f.ex.RunTarget(mutated)
	if err != nil {
		return fmt.Errorf("fuzzer: run target: %w", err)
	}
	durNs := uint64(time.Since(start).Nanoseconds())
	crashed := kind == forkserver.ExitCrash
	f.obs.ObserveExec(durNs, crashed)

	mapBytes := f.ex.Map()

	if !crashed {
		interesting, err := f.queueFeedback.Consume(mapBytes)
		if err != nil {
			return fmt.Errorf("fuzzer: queue feedback: %w", err)
		}
		md, err := f.queueFeedback.MarkAccepted()
		if err != nil {
			return fmt.Errorf("fuzzer: mark path: %w", err)
		}
		if interesting {
			f.addToQueue(mutated, md, f.queueFeedback.PathHash(), durNs)
		}
	} else {
		interesting, err := f.crashFeedback.Consume(mapBytes)
		if err != nil {
			return fmt.Errorf("fuzzer: crash feedback: %w", err)
		}
		if interesting {
			if _, err := f.crashFeedback.MarkAccepted(); err != nil {
				return fmt.Errorf("fuzzer: mark crash path: %w", err)
			}
			if _, err := f.solutions.Add(&corpus.Testcase{Input: mutated}); err != nil {
				f.warn("failed to persist crash", "error", err)
			}
			f.obs.ObserveCrash()
		} else {
			f.crashFeedback.DiscardMetadata()
		}
		if !f.fs.Alive() {
			if err := f.fs.Restart(context.Background()); err != nil {
				return fmt.Errorf("fuzzer: restart forkserver: %w", err)
			}
		}
	}

	if f.stats != nil {
		if err := f.stats.MaybeWrite(f.metrics.Snapshot()); err != nil {
			f.warn("stats sink write failed", "error", err)
		}
	}
	return nil
}

func (f *Fuzzer) warn(msg string, args ...any) {
	if f.log != nil {
		f.log.Warn(msg, args...)
	}
}
