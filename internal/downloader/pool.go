package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	errs "artgrab/pkg/errors"
	"artgrab/pkg/logger"
	"artgrab/pkg/ratelimit"
	"artgrab/pkg/retry"

	"github.com/google/uuid"
)

// ErrPoolStopped is reported for requests made after Stop
var ErrPoolStopped = errors.New("download pool is stopped")

// Fetcher opens remote streams
type Fetcher interface {
	Open(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int64, error)
}

// Saver persists a stream under a file name
type Saver interface {
	Save(r io.Reader, name string) (string, int64, error)
}

// Prompter asks where to save a file. It returns the name to use.
type Prompter interface {
	SaveAs(suggested string) (string, error)
}

// Skipper finds files that were saved before. A request whose name is
// already saved completes with the existing path and no transfer.
type Skipper interface {
	Existing(name string) (string, bool)
}

// MetadataWriter writes a sidecar document for a saved file
type MetadataWriter interface {
	Write(path string, meta interface{}) error
}

type job struct {
	ctx context.Context
	req Request
}

// Stats is a snapshot of pool activity
type Stats struct {
	Pending   int
	Completed int64
	Skipped   int64
	Failed    int64
	Bytes     int64
}

// WorkerPool runs transfers on a fixed set of workers. It implements
// Capability.
type WorkerPool struct {
	numWorkers int
	jobs       chan job
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc

	fetcher  Fetcher
	saver    Saver
	limiter  ratelimit.Limiter
	retry    *retry.Config
	prompter Prompter
	skipper  Skipper
	meta     MetadataWriter
	timeout  time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	pending int
	idle    chan struct{}
	stopped bool

	completed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	bytes     atomic.Int64
}

// NewWorkerPool creates a pool. limiter may be nil.
func NewWorkerPool(numWorkers int, fetcher Fetcher, saver Saver, limiter ratelimit.Limiter, log logger.Logger) *WorkerPool {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: numWorkers,
		jobs:       make(chan job, numWorkers*2),
		ctx:        ctx,
		cancel:     cancel,
		fetcher:    fetcher,
		saver:      saver,
		limiter:    limiter,
		retry:      &retry.Config{MaxAttempts: 1},
		timeout:    time.Minute,
		idle:       make(chan struct{}),
		logger:     log.WithField("component", "downloader"),
	}
}

// SetRetry sets the retry policy applied to each transfer
func (wp *WorkerPool) SetRetry(cfg *retry.Config) { wp.retry = cfg }

// SetPrompter sets the save-as prompter used for requests with SaveAs
func (wp *WorkerPool) SetPrompter(p Prompter) { wp.prompter = p }

// SetSkipper enables skipping of files that are already saved
func (wp *WorkerPool) SetSkipper(s Skipper) { wp.skipper = s }

// SetMetadataWriter enables sidecar files for requests carrying Metadata
func (wp *WorkerPool) SetMetadataWriter(w MetadataWriter) { wp.meta = w }

// SetDefaultTimeout bounds requests that do not set their own Timeout
func (wp *WorkerPool) SetDefaultTimeout(d time.Duration) {
	if d > 0 {
		wp.timeout = d
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	logger.LogComponentStart(wp.logger, "downloader", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop aborts queued and running transfers and waits for the workers
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	wp.mu.Unlock()

	wp.cancel()
	wp.wg.Wait()
	logger.LogComponentStop(wp.logger, "downloader", "stopped")
}

// Download queues req. It returns immediately; a full queue is absorbed by a
// goroutine so the caller's loop is never blocked.
func (wp *WorkerPool) Download(ctx context.Context, req Request) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		go req.failed(ErrPoolStopped)
		return
	}
	wp.pending++
	wp.mu.Unlock()

	j := job{ctx: ctx, req: req}
	select {
	case wp.jobs <- j:
	default:
		go func() {
			select {
			case wp.jobs <- j:
			case <-wp.ctx.Done():
				wp.finish(j, nil, ErrPoolStopped)
			}
		}()
	}

	wp.logger.DebugWithFields("Request queued", map[string]interface{}{
		"request_id": req.ID,
		"name":       req.Name,
	})
}

// WaitIdle blocks until no request is pending or ctx is done
func (wp *WorkerPool) WaitIdle(ctx context.Context) error {
	for {
		wp.mu.Lock()
		if wp.pending == 0 {
			wp.mu.Unlock()
			return nil
		}
		idle := wp.idle
		wp.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stats returns current counters
func (wp *WorkerPool) Stats() Stats {
	wp.mu.Lock()
	pending := wp.pending
	wp.mu.Unlock()
	return Stats{
		Pending:   pending,
		Completed: wp.completed.Load(),
		Skipped:   wp.skipped.Load(),
		Failed:    wp.failed.Load(),
		Bytes:     wp.bytes.Load(),
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			wp.drain()
			return
		case j := <-wp.jobs:
			res, err := wp.process(j, id)
			wp.finish(j, res, err)
		}
	}
}

// drain fails whatever is still queued once the pool is stopping
func (wp *WorkerPool) drain() {
	for {
		select {
		case j := <-wp.jobs:
			wp.finish(j, nil, ErrPoolStopped)
		default:
			return
		}
	}
}

func (wp *WorkerPool) finish(j job, res *Result, err error) {
	switch {
	case err == nil:
		wp.completed.Add(1)
		if res.Skipped {
			wp.skipped.Add(1)
		}
		wp.bytes.Add(res.Size)
		j.req.loaded(*res)
	case errs.Is(err, errs.ErrorTypeTimeout):
		wp.failed.Add(1)
		j.req.timedOut()
	default:
		wp.failed.Add(1)
		j.req.failed(err)
	}

	wp.mu.Lock()
	wp.pending--
	if wp.pending == 0 {
		close(wp.idle)
		wp.idle = make(chan struct{})
	}
	wp.mu.Unlock()
}

func (wp *WorkerPool) process(j job, workerID int) (*Result, error) {
	start := time.Now()
	req := j.req
	fields := map[string]interface{}{
		"worker_id":  workerID,
		"request_id": req.ID,
		"url":        req.URL,
	}

	if err := j.ctx.Err(); err != nil {
		return nil, err
	}

	name := req.Name
	if req.SaveAs && wp.prompter != nil {
		chosen, err := wp.prompter.SaveAs(name)
		if err != nil {
			return nil, fmt.Errorf("save as: %w", err)
		}
		name = chosen
	}

	if wp.skipper != nil {
		if path, ok := wp.skipper.Existing(name); ok {
			fields["path"] = path
			wp.logger.DebugWithFields("File already saved", fields)
			return &Result{RequestID: req.ID, Path: path, Skipped: true, Duration: time.Since(start)}, nil
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = wp.timeout
	}
	ctx, cancel := context.WithTimeout(j.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(wp.ctx, cancel)
	defer stop()

	if wp.limiter != nil {
		if err := wp.limiter.Wait(ctx); err != nil {
			return nil, wp.classify(j.ctx, ctx, err)
		}
	}

	var res Result
	err := retry.Do(ctx, func(ctx context.Context) error {
		body, total, err := wp.fetcher.Open(ctx, req.URL, req.Headers)
		if err != nil {
			return err
		}
		defer body.Close()

		req.progress(Progress{Loaded: 0, Total: total})
		path, n, err := wp.saver.Save(&progressReader{r: body, total: total, fn: req.progress}, name)
		if err != nil {
			return err
		}
		res = Result{RequestID: req.ID, Path: path, Size: n}
		return nil
	}, wp.retry)
	if err != nil {
		err = wp.classify(j.ctx, ctx, err)
		wp.logger.WithError(err).ErrorWithFields("Transfer failed", fields)
		return nil, err
	}

	if wp.meta != nil && req.Metadata != nil {
		if err := wp.meta.Write(res.Path, req.Metadata); err != nil {
			wp.logger.WithError(err).WarnWithFields("Failed to write metadata", fields)
		}
	}

	res.Duration = time.Since(start)
	fields["path"] = res.Path
	fields["size"] = res.Size
	wp.logger.DebugWithFields("Transfer completed", fields)
	return &res, nil
}

// classify turns a deadline on the per-request context into a timeout error,
// leaving cancellation by the caller or the pool as is.
func (wp *WorkerPool) classify(parent, ctx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if wp.ctx.Err() != nil {
		return ErrPoolStopped
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrorTypeTimeout, "transfer timed out", err)
	}
	return err
}

type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	fn     func(Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.fn(Progress{Loaded: p.loaded, Total: p.total})
	}
	return n, err
}
