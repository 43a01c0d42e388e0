package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/bcache"
	"github.com/hupe1980/bcache/image"
	"github.com/hupe1980/bcache/imagestore"
	"github.com/hupe1980/bcache/internal/conv"
	flag "github.com/spf13/pflag"
)

// RestoreCmd returns the restore command.
func RestoreCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.StringP("input", "i", "", "Image name in the store (required)")
	fs.Bool("zero-missing", false, "Zero blocks the image does not contain")

	return &Command{
		Flags: fs,
		Usage: "restore <dev> -i <name> [flags]",
		Short: "Write an image back to a device",
		Long: "Write every block of an image to the device through the cache and flush. " +
			"Blocks absent from the image are left alone unless --zero-missing is set.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execRestore(ctx, o, *cfg, fs, args)
		},
	}
}

var errInputRequired = errors.New("--input is required")

func execRestore(ctx context.Context, o *IO, cfg Config, fs *flag.FlagSet, args []string) error {
	path, err := deviceArg(args)
	if err != nil {
		return err
	}
	input, _ := fs.GetString("input")
	if input == "" {
		return errInputRequired
	}
	zeroMissing, _ := fs.GetBool("zero-missing")

	store, err := imagestore.FromURL(ctx, cfg.Store)
	if err != nil {
		return err
	}
	rc, err := store.Open(ctx, input)
	if err != nil {
		return fmt.Errorf("open image %s: %w", input, err)
	}
	defer rc.Close()

	r, err := image.NewReader(rc)
	if err != nil {
		return fmt.Errorf("image %s: %w", input, err)
	}

	s, err := openSession(cfg, o, path, true)
	if err != nil {
		return err
	}

	hdr := r.Header()
	if bs, err := conv.Uint32ToInt(hdr.BlockSize); err != nil || bs != s.cache.BlockSize() {
		_ = s.Close()
		return fmt.Errorf("image block size %d does not match device block size %d", hdr.BlockSize, s.cache.BlockSize())
	}
	if hdr.NrBlocks > s.cache.NrBlocks() {
		_ = s.Close()
		return fmt.Errorf("image has %d blocks, device only %d", hdr.NrBlocks, s.cache.NrBlocks())
	}

	written, zeroed, err := restoreImage(ctx, s, r, zeroMissing)
	if err != nil {
		// Close flushes what was written so far.
		return errors.Join(err, s.Close())
	}
	if err := s.cache.Flush(); err != nil {
		return errors.Join(err, s.Close())
	}
	if err := s.Close(); err != nil {
		return err
	}

	o.Printf("restored %d blocks", written)
	if zeroMissing {
		o.Printf(", zeroed %d", zeroed)
	}
	o.Printf(" to %s\n", path)
	return nil
}

func restoreImage(ctx context.Context, s *session, r *image.Reader, zeroMissing bool) (uint64, uint64, error) {
	var written, zeroed, next uint64

	zeroUpTo := func(end uint64) error {
		if !zeroMissing {
			next = end
			return nil
		}
		for ; next < end; next++ {
			if err := writeBlock(s.cache, next, nil); err != nil {
				return err
			}
			zeroed++
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return written, zeroed, err
		}
		index, data, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, zeroed, err
		}
		if err := zeroUpTo(index); err != nil {
			return written, zeroed, err
		}
		if err := writeBlock(s.cache, index, data); err != nil {
			return written, zeroed, err
		}
		written++
		next = index + 1
	}

	err := zeroUpTo(r.Header().NrBlocks)
	return written, zeroed, err
}

// writeBlock overwrites block index with data, or with zeroes when data
// is nil.
func writeBlock(c *bcache.Cache, index uint64, data []byte) error {
	b, err := c.Get(index, bcache.Zero|bcache.Dirty, nil)
	if err != nil {
		return err
	}
	copy(b.Data(), data)
	return b.Release()
}
