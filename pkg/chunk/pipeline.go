package chunk

import (
	"context"
	"errors"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// block is one unit handed from the reader goroutine to the writer. A
// block with start set announces a chunk and carries no data.
type block struct {
	index int
	start bool
	buf   []byte
	n     int
}

// copyPipelined overlaps reading block n+1 with writing and digesting
// block n. There is a single reader and a single consumer joined by a FIFO
// channel, so the sink still observes blocks strictly in order.
func (c *Combiner) copyPipelined(ctx context.Context, set *Set, s *sink) error {
	depth := c.opts.ReadAhead
	free := make(chan []byte, depth+1)
	for i := 0; i < depth+1; i++ {
		free <- make([]byte, c.opts.BufferSize)
	}
	blocks := make(chan block, depth)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(blocks)
		for i, ref := range set.Chunks {
			select {
			case blocks <- block{index: i, start: true}:
			case <-gctx.Done():
				return nil
			}
			if err := readAhead(gctx, i, ref, free, blocks); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		current := -1
		for b := range blocks {
			current = b.index
			ref := set.Chunks[b.index]
			if b.start {
				s.startChunk(b.index, ref)
				continue
			}
			err := s.block(b.index, ref, b.buf[:b.n])
			free <- b.buf
			if err != nil {
				return err
			}
		}
		// The reader stops quietly on cancellation; report it here against
		// the chunk being written.
		if err := ctx.Err(); err != nil {
			if current < 0 {
				return chunkErr("read", -1, "", ErrIO, err)
			}
			return chunkErr("read", current, set.Chunks[current].Name, ErrIO, err)
		}
		return nil
	})

	return g.Wait()
}

// readAhead streams one chunk into blocks, drawing buffers from free.
func readAhead(ctx context.Context, index int, ref Ref, free chan []byte, blocks chan<- block) error {
	in, err := os.Open(ref.Path)
	if err != nil {
		return chunkErr("open", index, ref.Name, ErrIO, err)
	}
	defer in.Close()

	for {
		var buf []byte
		select {
		case buf = <-free:
		case <-ctx.Done():
			return nil
		}
		n, err := io.ReadFull(in, buf)
		if n > 0 {
			select {
			case blocks <- block{index: index, buf: buf, n: n}:
			case <-ctx.Done():
				return nil
			}
		} else {
			free <- buf
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			return chunkErr("read", index, ref.Name, ErrIO, err)
		}
	}
}
