// Command spots is the SPOTS CLI: it solves a single Sprouts position
// with the configured algorithm, optionally repeating at increasing
// candidate nimbers until a loss is found (--compute-nimber), and
// reports statistics as a log line (stderr) and to an optional CSV file.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cizektom/spots/config"
	"github.com/cizektom/spots/dfpn"
	"github.com/cizektom/spots/group"
	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/pdfpn"
	"github.com/cizektom/spots/pn"
	"github.com/cizektom/spots/pns"
	"github.com/cizektom/spots/sprouts"
	"github.com/cizektom/spots/stats"
	"github.com/cizektom/spots/ttable"
)

func main() {
	cfg, positional, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(positional) == 1 && positional[0] == "repl" {
		runRepl(cfg)
		return
	}
	if len(positional) != 1 {
		fmt.Fprintln(os.Stderr, "usage: spots [flags] <position>")
		os.Exit(2)
	}

	os.Exit(run(cfg, positional[0]))
}

func run(cfg *config.Config, positionArg string) int {
	position, err := parsePosition(positionArg)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse position")
		return 1
	}

	db := nimberdb.New(cfg.Grouping > 1)
	if cfg.InputDatabase != "" {
		if _, err := db.Load(cfg.InputDatabase); err != nil {
			log.Error().Err(err).Msg("failed to load input database")
			return 1
		}
	}

	var statsWriter *stats.Writer
	if cfg.StatsPath != "" {
		w, err := stats.Open(cfg.StatsPath)
		if err != nil {
			log.Error().Err(err).Msg("failed to open stats file")
			return 1
		}
		statsWriter = w
		defer statsWriter.Close()
	}

	estimator := nimber.DepthProofNumberEstimator{}
	proved := false
	var finalOutcome pn.Outcome

	for nim := nimber.Nimber(0); ; nim++ {
		root := nimber.Couple{Position: position, Nim: nim}
		start := time.Now()

		solveFn, workerStats := buildSolver(cfg, db, estimator)
		info := solveFn(root, cfg.Iterations)
		duration := time.Since(start)

		outcome := info.PN.ToOutcome()
		finalOutcome = outcome
		proved = outcome != pn.Unknown

		row := stats.Row{
			Root:         root.Compact(),
			Outcome:      outcome.String(),
			Iterations:   cfg.Iterations,
			NimbersKnown: db.Size(),
			Duration:     duration,
		}
		if workerStats != nil {
			row.WorkerJobs, row.WorkerBusy = stats.FromWorkerStats(workerStats())
		}
		stats.LogSummary(row)
		if statsWriter != nil {
			if err := statsWriter.Write(row); err != nil {
				log.Warn().Err(err).Msg("failed to append stats row")
			}
		}

		if !cfg.ComputeNimber || outcome == pn.Loss {
			break
		}
	}

	if cfg.OutputDatabase != "" {
		if err := db.Store(cfg.OutputDatabase, true); err != nil {
			log.Error().Err(err).Msg("failed to write output database")
			return 1
		}
	}

	if !proved {
		log.Warn().Msg("search exhausted its iteration budget without a proof")
		return 1
	}
	log.Info().Str("outcome", finalOutcome.String()).Msg("solve complete")
	return 0
}

// solveFunc runs one solver call at a fixed iteration budget; workerStatsFunc,
// when non-nil, reports per-worker job counts after the call returns.
type solveFunc func(root nimber.Couple, maxIterations uint64) pns.ExpansionInfo
type workerStatsFunc func() []group.WorkerStats

func buildSolver(cfg *config.Config, db *nimberdb.Database, estimator nimber.ProofNumberEstimator) (solveFunc, workerStatsFunc) {
	capacity := cfg.Capacity
	stored := ttable.NewPnsDatabase(capacity, cfg.Workers > 1 || cfg.Threads > 1)

	switch config.Algorithm(cfg.Algorithm) {
	case config.AlgorithmDFS:
		s := pns.NewBasicPnsSolver(db, stored, nimber.DefaultProofNumberEstimator{})
		s.LandSwitching = false
		return s.Solve, nil

	case config.AlgorithmPNS:
		s := pns.NewBasicPnsSolver(db, stored, estimator)
		return s.Solve, nil

	case config.AlgorithmDFPN:
		s := dfpn.NewSolver(db, stored, estimator)
		return s.Solve, nil

	case config.AlgorithmPDFPN:
		pd := pdfpn.New(db, stored, estimator, 0)
		threads := cfg.Threads
		if threads < 1 {
			threads = 1
		}
		return func(root nimber.Couple, maxIterations uint64) pns.ExpansionInfo {
			return pd.Solve(root, threads, maxIterations)
		}, nil

	default: // config.AlgorithmPNSPDFPN
		threads := cfg.Threads
		if threads < 1 {
			threads = 1
		}
		g := group.New(db, cfg.Workers, capacity, func(db *nimberdb.Database, stored *ttable.PnsDatabase) pns.InnerExpander {
			return pdfpn.Expander{PDFPN: pdfpn.New(db, stored, estimator, 0), Threads: threads}
		})
		g.StateLevel = group.StateLevel(cfg.StateLevel)
		g.NoSharing = cfg.NoSharing

		outer := pns.NewBasicPnsSolver(db, stored, estimator)
		outer.Inner = groupExpander{g}
		outer.InnerBudget = cfg.Iterations
		return outer.Solve, g.Stats
	}
}

// groupExpander adapts group.ParallelGroup's batch Expand to the
// single-couple pns.InnerExpander capability BasicPnsSolver's PN² mode
// expects.
type groupExpander struct{ g *group.ParallelGroup }

func (e groupExpander) ExpandCouple(c nimber.Couple, maxIterations uint64) pns.ExpansionInfo {
	results := e.g.Expand([]group.Job{{Couple: c, MaxIterations: maxIterations}})
	return results[0]
}

func parsePosition(arg string) (nimber.Game, error) {
	if g, err := sprouts.Parse(arg); err == nil {
		return g, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a land string nor a spot count", arg)
	}
	if n < 0 {
		return nil, fmt.Errorf("position spot count %d must be non-negative", n)
	}
	return sprouts.NewStarting(n), nil
}

// runRepl drives an interactive session (spots repl): each line is a
// position, solved immediately under the configured algorithm.
func runRepl(cfg *config.Config) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mspots>\033[0m ",
		HistoryFile:     "/tmp/spots_readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start repl")
	}
	defer l.Close()

	for {
		line, err := l.Readline()
		if err != nil {
			break
		}
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		run(cfg, line)
	}
}
