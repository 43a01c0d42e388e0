package cli

import (
	"context"
	"errors"

	"github.com/hupe1980/bcache"
	flag "github.com/spf13/pflag"
)

// ZeroCmd returns the zero command.
func ZeroCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("zero", flag.ContinueOnError)
	fs.Uint64("from", 0, "First block to zero")
	fs.Uint64("count", 0, "Number of blocks to zero (required)")

	return &Command{
		Flags: fs,
		Usage: "zero <dev> --from <n> --count <m>",
		Short: "Zero a range of blocks",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execZero(ctx, o, *cfg, fs, args)
		},
	}
}

var errCountRequired = errors.New("--count is required")

func execZero(ctx context.Context, o *IO, cfg Config, fs *flag.FlagSet, args []string) error {
	path, err := deviceArg(args)
	if err != nil {
		return err
	}
	from, _ := fs.GetUint64("from")
	count, _ := fs.GetUint64("count")
	if count == 0 {
		return errCountRequired
	}

	s, err := openSession(cfg, o, path, true)
	if err != nil {
		return err
	}
	from, end, err := s.blockRange(from, count)
	if err != nil {
		_ = s.Close()
		return err
	}

	err = s.scan(ctx, from, end, bcache.Zero|bcache.Dirty, nil, func(uint64, []byte) error { return nil }, nil)
	if err == nil {
		err = s.cache.Flush()
	}
	if err := errors.Join(err, s.Close()); err != nil {
		return err
	}

	o.Printf("zeroed blocks %d-%d on %s\n", from, end-1, path)
	return nil
}
