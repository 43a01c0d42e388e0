package cli

import (
	"context"
	"encoding/json"

	"github.com/hupe1980/bcache"
	"github.com/hupe1980/bcache/image"
	flag "github.com/spf13/pflag"
)

// StatCmd returns the stat command.
func StatCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("stat", flag.ContinueOnError)
	fs.Bool("scan", false, "Read every block and count the non-zero ones")
	fs.Bool("json", false, "Print JSON")

	return &Command{
		Flags: fs,
		Usage: "stat <dev> [flags]",
		Short: "Show device geometry",
		Long:  "Show device size and block geometry. With --scan, read the device through the cache and count non-zero blocks.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execStat(ctx, o, *cfg, fs, args)
		},
	}
}

type statReport struct {
	Device    string        `json:"device"`
	Size      int64         `json:"size"`
	BlockSize int           `json:"block_size"`
	Blocks    uint64        `json:"blocks"`
	Direct    bool          `json:"direct"`
	Slots     int           `json:"cache_slots"`
	NonZero   *uint64       `json:"non_zero_blocks,omitempty"`
	Cache     *bcache.Stats `json:"cache,omitempty"`
}

func execStat(ctx context.Context, o *IO, cfg Config, fs *flag.FlagSet, args []string) error {
	path, err := deviceArg(args)
	if err != nil {
		return err
	}
	scan, _ := fs.GetBool("scan")
	asJSON, _ := fs.GetBool("json")

	s, err := openSession(cfg, o, path, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			o.Warn("close %s: %v", path, err)
		}
	}()

	size, err := s.dev.Size()
	if err != nil {
		return err
	}
	report := statReport{
		Device:    path,
		Size:      size,
		BlockSize: s.cache.BlockSize(),
		Blocks:    s.cache.NrBlocks(),
		Direct:    s.dev.Direct(),
		Slots:     s.cache.Capacity(),
	}

	if scan {
		var nonZero uint64
		err := s.scan(ctx, 0, s.cache.NrBlocks(), bcache.Read, nil, func(index uint64, data []byte) error {
			if !image.IsZero(data) {
				nonZero++
			}
			return nil
		}, nil)
		if err != nil {
			return err
		}
		stats := s.cache.Stats()
		report.NonZero = &nonZero
		report.Cache = &stats
	}

	if asJSON {
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	o.Printf("device:      %s\n", report.Device)
	o.Printf("size:        %d\n", report.Size)
	o.Printf("block size:  %d\n", report.BlockSize)
	o.Printf("blocks:      %d\n", report.Blocks)
	o.Printf("direct:      %t\n", report.Direct)
	o.Printf("cache slots: %d\n", report.Slots)
	if report.NonZero != nil {
		o.Printf("non-zero:    %d\n", *report.NonZero)
		o.Printf("hit ratio:   %.2f\n", report.Cache.HitRatio())
		o.Printf("prefetches:  %d\n", report.Cache.Prefetches)
	}
	return nil
}
