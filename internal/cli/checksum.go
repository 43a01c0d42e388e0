package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/bcache"
	"github.com/hupe1980/bcache/validator"
	flag "github.com/spf13/pflag"
)

func checksumFlags(fs *flag.FlagSet) {
	fs.String("algo", validator.CRC32C.String(), "Checksum algorithm (crc32c|xxhash64|highwayhash64)")
	fs.Uint64("salt", 0, "Per block-type checksum salt")
	fs.Uint64("from", 0, "First block")
	fs.Uint64("count", 0, "Number of blocks (0 = to the end)")
}

func checksumFromFlags(fs *flag.FlagSet) (*validator.Checksum, error) {
	name, _ := fs.GetString("algo")
	algo, err := validator.ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	salt, _ := fs.GetUint64("salt")
	return validator.NewChecksum(algo, salt)
}

// StampCmd returns the stamp command.
func StampCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("stamp", flag.ContinueOnError)
	checksumFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "stamp <dev> [flags]",
		Short: "Write checksum headers into a range of blocks",
		Long: fmt.Sprintf("Overwrite the first %d bytes of every block in the range with its "+
			"checksum and address, so verify accepts it.", validator.HeaderSize),
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execStamp(ctx, o, *cfg, fs, args)
		},
	}
}

func execStamp(ctx context.Context, o *IO, cfg Config, fs *flag.FlagSet, args []string) error {
	path, err := deviceArg(args)
	if err != nil {
		return err
	}
	ck, err := checksumFromFlags(fs)
	if err != nil {
		return err
	}
	from, _ := fs.GetUint64("from")
	count, _ := fs.GetUint64("count")

	s, err := openSession(cfg, o, path, true)
	if err != nil {
		return err
	}
	from, end, err := s.blockRange(from, count)
	if err != nil {
		_ = s.Close()
		return err
	}

	// Blocks are held unvalidated and stamped in place; the cache writes
	// them back as they are.
	err = s.scan(ctx, from, end, bcache.Dirty, nil, func(index uint64, data []byte) error {
		ck.Prepare(data, index)
		return nil
	}, nil)
	if err == nil {
		err = s.cache.Flush()
	}
	if err := errors.Join(err, s.Close()); err != nil {
		return err
	}

	o.Printf("stamped %d blocks with %s\n", end-from, ck.Algorithm())
	return nil
}

// VerifyCmd returns the verify command.
func VerifyCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	checksumFlags(fs)
	fs.Int("max-report", 20, "Print at most this many failing blocks")

	return &Command{
		Flags: fs,
		Usage: "verify <dev> [flags]",
		Short: "Check block checksums and addresses",
		Long:  "Read a range of blocks through the cache with a checksum validator and report every block that fails.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execVerify(ctx, o, *cfg, fs, args)
		},
	}
}

func execVerify(ctx context.Context, o *IO, cfg Config, fs *flag.FlagSet, args []string) error {
	path, err := deviceArg(args)
	if err != nil {
		return err
	}
	ck, err := checksumFromFlags(fs)
	if err != nil {
		return err
	}
	from, _ := fs.GetUint64("from")
	count, _ := fs.GetUint64("count")
	maxReport, _ := fs.GetInt("max-report")

	s, err := openSession(cfg, o, path, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			o.Warn("close %s: %v", path, err)
		}
	}()

	from, end, err := s.blockRange(from, count)
	if err != nil {
		return err
	}

	var failed int
	skip := func(index uint64, err error) bool {
		var verr *bcache.ValidationError
		switch {
		case errors.As(err, &verr):
		case errors.Is(err, bcache.ErrIO):
			// Errored blocks keep their slot until discarded.
			if derr := s.cache.Discard(index); derr != nil {
				return false
			}
		default:
			return false
		}
		failed++
		if failed <= maxReport {
			o.Printf("block %d: %v\n", index, err)
		}
		return true
	}

	if err := s.scan(ctx, from, end, bcache.Read, ck, func(uint64, []byte) error { return nil }, skip); err != nil {
		return err
	}

	if failed > maxReport {
		o.Printf("... %d more\n", failed-maxReport)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d blocks failed verification", failed, end-from)
	}
	o.Printf("verified %d blocks with %s\n", end-from, ck.Algorithm())
	return nil
}
