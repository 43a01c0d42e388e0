package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
)

// globalFlags are accepted before the command name.
type globalFlags struct {
	fs         *flag.FlagSet
	configPath string
	overrides  Config
	direct     bool
}

func parseGlobalFlags(args []string) (*globalFlags, []string, error) {
	g := &globalFlags{fs: flag.NewFlagSet("bcachetool", flag.ContinueOnError)}
	fs := g.fs
	fs.SetInterspersed(false)
	fs.SetOutput(&strings.Builder{})

	fs.StringVarP(&g.configPath, "config", "c", "", "Config file (JSON with comments)")
	fs.Uint32Var(&g.overrides.BlockSectors, "block-sectors", 0, "Block size in 512-byte sectors (default 8)")
	fs.Int64Var(&g.overrides.CacheMemory, "cache-memory", 0, "Cache memory budget in bytes (default 16MiB)")
	fs.BoolVar(&g.direct, "direct", true, "Open devices with O_DIRECT")
	fs.IntVar(&g.overrides.IOWorkers, "io-workers", 0, "Concurrent device transfers (default 4)")
	fs.Int64Var(&g.overrides.IORate, "io-rate", 0, "Limit device writes and image output to bytes/sec")
	fs.StringVar(&g.overrides.Store, "store", "", "Image store: directory, file://, s3:// or minio:// URL")
	fs.StringVar(&g.overrides.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	fs.StringVar(&g.overrides.LogFormat, "log-format", "", "Log format (text|json)")

	if err := fs.Parse(args); err != nil {
		return g, nil, err
	}
	if fs.Changed("direct") {
		g.overrides.Direct = &g.direct
	}
	return g, fs.Args(), nil
}

func commands(cfg *Config) []*Command {
	return []*Command{
		StatCmd(cfg),
		DumpCmd(cfg),
		RestoreCmd(cfg),
		ZeroCmd(cfg),
		StampCmd(cfg),
		VerifyCmd(cfg),
	}
}

// Run is the main entry point. Returns exit code. A signal on sigCh
// cancels the running command.
func Run(out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	g, rest, err := parseGlobalFlags(args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(out, g)
			return 0
		}
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	if len(rest) == 0 || rest[0] == "help" {
		printUsage(out, g)
		return 0
	}

	cfg, err := LoadConfig(g.configPath, env)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	cfg = mergeConfig(cfg, g.overrides)
	if err := cfg.validate(); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(out, errOut)
	for _, cmd := range commands(&cfg) {
		if cmd.Name() == rest[0] {
			return cmd.Run(ctx, o, rest[1:])
		}
	}

	fmt.Fprintln(errOut, "error: unknown command:", rest[0])
	printUsage(errOut, g)
	return 1
}

func printUsage(w io.Writer, g *globalFlags) {
	fmt.Fprintln(w, "bcachetool - inspect, dump and restore block devices through a block cache")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: bcachetool [global flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands(&Config{}) {
		fmt.Fprintln(w, cmd.HelpLine())
	}
	if g != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Global flags:")
		var buf strings.Builder
		g.fs.SetOutput(&buf)
		g.fs.PrintDefaults()
		fmt.Fprint(w, buf.String())
	}
}
