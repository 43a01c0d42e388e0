package cli

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/bcache"
	"github.com/hupe1980/bcache/image"
	"github.com/hupe1980/bcache/imagestore"
	"github.com/hupe1980/bcache/internal/conv"
	"github.com/hupe1980/bcache/resource"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// DumpCmd returns the dump command.
func DumpCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.StringP("output", "o", "", "Image name in the store (required)")
	fs.String("codec", "", "Image compression (none|lz4|zstd), default from config")
	fs.Uint64("from", 0, "First block to dump")
	fs.Uint64("count", 0, "Number of blocks to dump (0 = to the end)")

	return &Command{
		Flags: fs,
		Usage: "dump <dev> -o <name> [flags]",
		Short: "Write the device's non-zero blocks to an image",
		Long: "Read the device through the cache, prefetching ahead, and stream its non-zero " +
			"blocks into a compressed image in the configured store.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execDump(ctx, o, *cfg, fs, args)
		},
	}
}

var errOutputRequired = errors.New("--output is required")

func execDump(ctx context.Context, o *IO, cfg Config, fs *flag.FlagSet, args []string) error {
	path, err := deviceArg(args)
	if err != nil {
		return err
	}
	output, _ := fs.GetString("output")
	if output == "" {
		return errOutputRequired
	}
	codecName := cfg.Codec
	if fs.Changed("codec") {
		codecName, _ = fs.GetString("codec")
	}
	codec, err := image.ParseCodec(codecName)
	if err != nil {
		return err
	}
	from, _ := fs.GetUint64("from")
	count, _ := fs.GetUint64("count")

	store, err := imagestore.FromURL(ctx, cfg.Store)
	if err != nil {
		return err
	}

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

	stored, err := dumpImage(ctx, s, store, output, codec, from, end)
	if err != nil {
		return err
	}
	o.Printf("dumped %d of %d blocks to %s\n", stored, end-from, output)
	return nil
}

// dumpImage encodes blocks [from, end) while the store consumes the other
// end of a pipe, so the image is never held in memory.
func dumpImage(ctx context.Context, s *session, store imagestore.Store, name string, codec image.Codec, from, end uint64) (uint64, error) {
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := store.Put(gctx, name, pr)
		_ = pr.CloseWithError(err)
		return err
	})

	var stored uint64
	g.Go(func() error {
		err := encodeImage(gctx, s, resource.NewRateLimitedWriter(gctx, pw, s.rc), codec, from, end, &stored)
		_ = pw.CloseWithError(err)
		return err
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return stored, nil
}

func encodeImage(ctx context.Context, s *session, w io.Writer, codec image.Codec, from, end uint64, stored *uint64) error {
	blockSize, err := conv.IntToUint32(s.cache.BlockSize())
	if err != nil {
		return err
	}
	iw, err := image.NewWriter(w, blockSize, s.cache.NrBlocks(), codec)
	if err != nil {
		return err
	}
	err = s.scan(ctx, from, end, bcache.Read, nil, iw.WriteBlock, nil)
	if err != nil {
		return err
	}
	if err := iw.Close(); err != nil {
		return err
	}
	*stored = iw.Blocks()
	return nil
}
