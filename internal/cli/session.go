package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/bcache"
	"github.com/hupe1980/bcache/device"
	"github.com/hupe1980/bcache/resource"
	"golang.org/x/sys/unix"
)

// session is an open device with a cache over it.
type session struct {
	cfg    Config
	dev    *device.File
	cache  *bcache.Cache
	rc     *resource.Controller
	logger *bcache.Logger
}

func newLogger(cfg Config, o *IO) *bcache.Logger {
	lvl, _ := cfg.level()
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.LogFormat == "json" {
		return bcache.NewLogger(slog.NewJSONHandler(o.errOut, opts))
	}
	return bcache.NewLogger(slog.NewTextHandler(o.errOut, opts))
}

// newController tracks pool memory and applies --io-rate. The pool may
// exceed cache_memory by the 16 slot floor, so memory is not capped.
func newController(cfg Config) *resource.Controller {
	return resource.NewController(resource.Config{
		IOLimitBytesPerSec: cfg.IORate,
	})
}

// openDevice opens path, falling back to buffered I/O when the file
// system rejects O_DIRECT.
func openDevice(cfg Config, logger *bcache.Logger, path string, writable bool) (*device.File, error) {
	var flags device.OpenFlags
	if writable {
		flags |= device.ReadWrite
	}
	if cfg.UseDirect() {
		dev, err := device.OpenFile(path, flags|device.Direct)
		if err == nil {
			return dev, nil
		}
		if !errors.Is(err, unix.EINVAL) {
			return nil, err
		}
		logger.Warn("O_DIRECT not supported, using buffered i/o", "device", path)
	}
	return device.OpenFile(path, flags)
}

func openSession(cfg Config, o *IO, path string, writable bool) (*session, error) {
	logger := newLogger(cfg, o).WithDevice(path)

	dev, err := openDevice(cfg, logger, path, writable)
	if err != nil {
		return nil, err
	}

	blockSize := int(cfg.BlockSectors) << bcache.SectorShift
	nrBlocks, err := device.Blocks(dev, blockSize)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	if nrBlocks == 0 {
		_ = dev.Close()
		return nil, fmt.Errorf("%s: smaller than one %d byte block", path, blockSize)
	}

	rc := newController(cfg)
	cache, err := bcache.Open(dev, cfg.BlockSectors, nrBlocks, cfg.CacheMemory,
		bcache.WithLogger(logger),
		bcache.WithResourceController(rc),
		bcache.WithIOWorkers(cfg.IOWorkers),
	)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	return &session{cfg: cfg, dev: dev, cache: cache, rc: rc, logger: logger}, nil
}

// Close flushes and closes the cache, which closes the device.
func (s *session) Close() error {
	return s.cache.Close()
}

// blockRange resolves --from/--count against the device size. A zero
// count means up to the last block.
func (s *session) blockRange(from, count uint64) (uint64, uint64, error) {
	nr := s.cache.NrBlocks()
	if from >= nr {
		return 0, 0, fmt.Errorf("--from %d beyond last block %d", from, nr-1)
	}
	if count == 0 || count > nr-from {
		if count != 0 {
			return 0, 0, fmt.Errorf("--count %d runs past last block %d", count, nr-1)
		}
		count = nr - from
	}
	return from, from + count, nil
}
