package coordinator

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/digest"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/source"
)

// UploadFunc transfers the part covering r.
type UploadFunc func(ctx context.Context, r chunktypes.Range) (chunktypes.PartRecord, error)

// Config configures a Coordinator.
type Config struct {
	// Concurrency is the maximum number of parts in flight (default chunktypes.DefaultConcurrency)
	Concurrency int

	// PartSize is reported to the progress observer
	PartSize int64

	// Progress observes each completed part (optional)
	Progress chunktypes.ProgressFunc

	// Logger receives debug output (optional)
	Logger *slog.Logger
}

// Coordinator runs part uploads concurrently.
type Coordinator struct {
	concurrency int
	partSize    int64
	progress    chunktypes.ProgressFunc
	logger      *slog.Logger
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = chunktypes.DefaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		concurrency: concurrency,
		partSize:    cfg.PartSize,
		progress:    cfg.Progress,
		logger:      logger,
	}
}

type result struct {
	record chunktypes.PartRecord
	err    error
}

// Run uploads every range with fn and returns the records sorted ascending
// by offset. It fails if any part fails; no partial result is returned.
func (c *Coordinator) Run(ctx context.Context, ranges []chunktypes.Range, fn UploadFunc) ([]chunktypes.PartRecord, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	// Buffered so workers never wait on the collector
	results := make(chan result, len(ranges))
	var groupErr error

	go func() {
		for _, r := range ranges {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				record, err := fn(gctx, r)
				results <- result{record: record, err: err}
				return err
			})
		}
		groupErr = g.Wait()
		close(results)
	}()

	total := len(ranges)
	records := make([]chunktypes.PartRecord, 0, total)
	for res := range results {
		if res.err != nil {
			continue
		}
		if c.progress != nil {
			c.progress(res.record, c.partSize, total)
		}
		records = append(records, res.record)
	}

	if groupErr != nil {
		c.logger.Debug("part upload failed, remaining parts canceled",
			"completed", len(records),
			"total", total,
			"error", groupErr)
		return nil, groupErr
	}
	if len(records) != total {
		// Canceled by the caller before every part was started
		err := ctx.Err()
		if err == nil {
			err = errors.ErrAborted
		}
		return nil, errors.NewError("uploadParts", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Offset < records[j].Offset
	})
	return records, nil
}

// ReadParts returns an UploadFunc that reads each range from src into a
// pooled buffer, digests it and hands the descriptor to upload. Reads use
// the part's context when src supports it.
func ReadParts(
	src io.ReaderAt,
	buffers *pool.BufferPool,
	sessionID string,
	upload func(context.Context, chunktypes.PartDescriptor) (chunktypes.PartRecord, error),
) UploadFunc {
	return func(ctx context.Context, r chunktypes.Range) (chunktypes.PartRecord, error) {
		buf := buffers.Get(int(r.Size()))

		n, err := source.ReaderAt(ctx, src).ReadAt(buf, r.Offset)
		if n < len(buf) {
			if err == nil || err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			buffers.Put(buf)
			return chunktypes.PartRecord{}, errors.NewPartError("readPart", sessionID, r.Offset, err)
		}

		record, err := upload(ctx, chunktypes.PartDescriptor{
			Range:  r,
			Data:   buf,
			Digest: digest.Sum(buf),
		})
		if err != nil {
			// The transport may still hold the body of a failed request
			return chunktypes.PartRecord{}, err
		}

		buffers.Put(buf)
		return record, nil
	}
}
