// Package config holds the CLI/environment flag surface of §6: the
// fixed set of knobs the harness relays into the search engine as
// configuration, parsed with namsral/flag so every flag also has an
// environment-variable equivalent.
package config

import "github.com/namsral/flag"

// Algorithm selects which solver cmd/spots builds.
type Algorithm string

const (
	AlgorithmDFS      Algorithm = "dfs"
	AlgorithmPNS      Algorithm = "pns"
	AlgorithmDFPN     Algorithm = "dfpn"
	AlgorithmPDFPN    Algorithm = "pdfpn"
	AlgorithmPNSPDFPN Algorithm = "pns-pdfpn"
)

// Config is the parsed CLI surface of §6.
type Config struct {
	Algorithm string

	ComputeNimber bool

	Capacity        uint64
	InputDatabase   string
	OutputDatabase  string

	Verbose bool
	Seed    int64

	Workers    int
	Threads    int
	Iterations uint64
	Updates    uint64

	Grouping   int
	NoSharing  bool
	StateLevel int

	Address string

	StatsPath string
}

// DefaultConfig returns the flag defaults, mirroring macondo's
// DefaultConfig/Load split: a caller can inspect or override defaults
// before a Load call, or skip Load entirely in tests.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:  string(AlgorithmPNSPDFPN),
		Capacity:   0, // 0 means ttable.DefaultTableCapacity
		Workers:    1,
		Threads:    1,
		Iterations: 1_000_000,
		Updates:    1000,
		Grouping:   1,
		StateLevel: 0,
	}
}

// Load parses args (typically os.Args[1:]) into a fresh Config,
// returning the unflagged positional arguments that remain — the
// harness expects exactly one: the Sprouts position to solve.
func Load(args []string) (*Config, []string, error) {
	c := DefaultConfig()
	fs := flag.NewFlagSet("spots", flag.ContinueOnError)

	fs.StringVar(&c.Algorithm, "algorithm", c.Algorithm, "solver to run: dfs, pns, dfpn, pdfpn, pns-pdfpn")
	fs.BoolVar(&c.ComputeNimber, "compute-nimber", c.ComputeNimber, "repeatedly solve at increasing candidate nim values until a loss is found")
	fs.Uint64Var(&c.Capacity, "capacity", c.Capacity, "transposition table capacity (0 uses the built-in default)")
	fs.StringVar(&c.InputDatabase, "input-database", c.InputDatabase, "nimber database file to load before solving")
	fs.StringVar(&c.OutputDatabase, "output-database", c.OutputDatabase, "nimber database file to write after solving")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "enable debug-level logging")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "PRNG seed (parsed but not read by any solver)")
	fs.IntVar(&c.Workers, "workers", c.Workers, "number of in-process worker solvers")
	fs.IntVar(&c.Threads, "threads", c.Threads, "PDFPN worker thread count per solve")
	fs.Uint64Var(&c.Iterations, "iterations", c.Iterations, "per-job iteration budget")
	fs.Uint64Var(&c.Updates, "updates", c.Updates, "master update frequency, in completed jobs")
	fs.IntVar(&c.Grouping, "grouping", c.Grouping, "group size for nimber database sharing")
	fs.BoolVar(&c.NoSharing, "no-sharing", c.NoSharing, "disable cross-worker nimber sharing")
	fs.IntVar(&c.StateLevel, "state-level", c.StateLevel, "worker state retention on root change: 0=keep, 1=drop tree, 2=drop tree and nimbers")
	fs.StringVar(&c.Address, "address", c.Address, "external cluster address (NATS URL) for distributed grouping")
	fs.StringVar(&c.StatsPath, "stats-path", c.StatsPath, "CSV path to append per-job statistics to")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return c, fs.Args(), nil
}
