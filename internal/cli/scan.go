package cli

import (
	"context"

	"github.com/hupe1980/bcache"
	"github.com/hupe1980/bcache/validator"
)

// scan gets blocks [from, end) in order with flags, keeping a window of
// prefetches ahead of the reader, and calls fn with each block while it is
// held. When Get fails and skip is non-nil, skip decides whether to carry
// on.
func (s *session) scan(ctx context.Context, from, end uint64, flags bcache.GetFlags, v validator.Validator,
	fn func(index uint64, data []byte) error, skip func(index uint64, err error) bool,
) error {
	window := uint64(max(s.cache.Capacity()/2, 1))
	ahead := from

	for index := from; index < end; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for flags&bcache.Zero == 0 && ahead < end && ahead < index+window {
			if err := s.cache.Prefetch(ahead); err != nil {
				return err
			}
			ahead++
		}

		b, err := s.cache.Get(index, flags, v)
		if err != nil {
			if skip != nil && skip(index, err) {
				continue
			}
			return err
		}
		err = fn(index, b.Data())
		if rerr := b.Release(); err == nil {
			err = rerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}
