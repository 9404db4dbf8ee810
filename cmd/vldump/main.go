// Command vldump writes sample variable-length data through a session,
// reads it back and prints what came out together with heap statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/hdf5"
)

func main() {
	var (
		wasm     = flag.Bool("wasm", false, "Back native memory with a wasm linear memory")
		word     = flag.Int("word", 8, "Platform word size (4 or 8)")
		keep     = flag.Bool("keep", false, "Use the process-lifetime buffer policy")
		verbose  = flag.Bool("v", false, "Log every transfer")
		plain    = flag.Bool("plain", false, "Disable styling")
		maxBytes = flag.Int("max-string", 0, "Longest VL string written or read (0 for the default)")
	)
	flag.Parse()

	opts := []hdf5.Option{hdf5.WithWordSize(*word)}
	if *wasm {
		opts = append(opts, hdf5.WithWasmMemory())
	}
	if *keep {
		opts = append(opts, hdf5.WithLifetimePolicy(hdf5.PolicyProcessLifetime))
	}
	if *maxBytes > 0 {
		opts = append(opts, hdf5.WithMaxStringSize(*maxBytes))
	}
	var log *zap.Logger
	if *verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, hdf5.WithLogger(log))
	}

	styled := !*plain && term.IsTerminal(int(os.Stdout.Fd()))
	err := run(newPrinter(os.Stdout, styled), opts)
	if log != nil {
		// Sync before any exit.
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(p *printer, opts []hdf5.Option) error {
	s, err := hdf5.Open(opts...)
	if err != nil {
		return err
	}

	p.title(fmt.Sprintf("vldump (word %d)", s.WordSize()))
	for _, sc := range scenarios() {
		res := sc.run(s)
		p.result(sc.name, sc.typeDesc, res)
	}

	st := s.Stats()
	p.stats(st)
	if err := s.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
