// Command spots-worker is the distributed worker process entrypoint:
// it subscribes to job assignments over NATS, solves each with a
// persistent local DFPN/PDFPN solver sharing a nimber database across
// jobs, and publishes completed results back to the master.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cizektom/spots/dfpn"
	"github.com/cizektom/spots/nimber"
	"github.com/cizektom/spots/nimberdb"
	"github.com/cizektom/spots/pdfpn"
	"github.com/cizektom/spots/pns"
	"github.com/cizektom/spots/sprouts"
	"github.com/cizektom/spots/transport"
	"github.com/cizektom/spots/ttable"
)

func main() {
	var (
		address  string
		workerID string
		threads  int
		capacity uint64
		verbose  bool
	)
	fs := flag.NewFlagSet("spots-worker", flag.ContinueOnError)
	fs.StringVar(&address, "address", "nats://127.0.0.1:4222", "NATS cluster address")
	fs.StringVar(&workerID, "worker-id", "0", "worker identity, used in its job/result subjects")
	fs.IntVar(&threads, "threads", 1, "PDFPN thread count (1 runs plain DFPN)")
	fs.Uint64Var(&capacity, "capacity", 0, "transposition table capacity (0 uses the built-in default)")
	fs.BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	tr, err := transport.Connect(address, sprouts.Parse)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer tr.Close()

	db := nimberdb.New(false)
	estimator := nimber.DepthProofNumberEstimator{}
	stored := ttable.NewPnsDatabase(capacity, threads > 1)

	solve := buildWorkerSolver(db, stored, estimator, threads)

	sub, err := tr.SubscribeJobs(workerID, func(job transport.JobAssignment) {
		log.Info().Str("couple", job.Couple.Compact()).Uint64("budget", job.MaxIterations).Msg("received job")
		info := solve(job.Couple, job.MaxIterations)
		if err := tr.PublishResult(workerID, transport.CompletedJob{Parent: job.Couple, Info: info}); err != nil {
			log.Warn().Err(err).Msg("failed to publish completed job")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to job subject")
	}
	defer sub.Unsubscribe()

	log.Info().Str("worker-id", workerID).Str("address", address).Int("threads", threads).Msg("spots-worker listening")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()
	<-ctx.Done()
	log.Info().Msg("spots-worker stopped")
}

func buildWorkerSolver(db *nimberdb.Database, stored *ttable.PnsDatabase, estimator nimber.ProofNumberEstimator, threads int) func(nimber.Couple, uint64) pns.ExpansionInfo {
	if threads > 1 {
		pd := pdfpn.New(db, stored, estimator, 0)
		return func(c nimber.Couple, budget uint64) pns.ExpansionInfo { return pd.Solve(c, threads, budget) }
	}
	s := dfpn.NewSolver(db, stored, estimator)
	return s.Solve
}
