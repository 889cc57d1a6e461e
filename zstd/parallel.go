package zstd

import (
	"context"

	pack "github.com/andybalholm/zpack"
	"golang.org/x/sync/errgroup"
)

// job is a slice of a frame's input compressed independently of the
// others. Its match finder sees prefix (the end of the previous job's
// input, or the dictionary) as history.
type job struct {
	prefix []byte
	src    []byte
	first  bool
	last   bool
	out    []byte
}

// overlap returns how much of the previous job's input primes the next.
func (e *Encoder) overlap() int {
	return e.o.WindowSize / 8
}

// splitJobs cuts src into jobs. before is the input that precedes src in
// the frame.
func (e *Encoder) splitJobs(src, before []byte, first, last bool) []*job {
	var jobs []*job
	for len(src) > 0 || (len(jobs) == 0 && last) {
		n := min(e.o.JobSize, len(src))
		j := &job{
			src:   src[:n],
			first: first && len(jobs) == 0,
			last:  last && n == len(src),
		}
		if j.first {
			j.prefix = e.o.Dict.history()
		} else {
			j.prefix = before[max(len(before)-e.overlap(), 0):]
		}
		jobs = append(jobs, j)
		before = src[:n]
		src = src[n:]
	}
	return jobs
}

// runJobs compresses jobs with at most Concurrency of them at once.
func (e *Encoder) runJobs(ctx context.Context, jobs []*job) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.o.Concurrency)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			j.out = e.encodeJob(j.out[:0], j)
			return nil
		})
	}
	return g.Wait()
}

// encodeJob compresses one job into blocks. Jobs after the first start
// with invalid repeat offsets, so their blocks don't depend on how the
// previous job ended.
func (e *Encoder) encodeJob(dst []byte, j *job) []byte {
	finder := e.getFinder(j.prefix)
	defer e.putFinder(finder)

	var b blockEnc
	reps := invalidReps
	if j.first {
		reps = e.o.Dict.reps()
	}
	b.init(reps, e.o.WindowSize)

	if len(j.src) == 0 {
		return appendBlockHeader(dst, j.last, blockTypeRaw, 0)
	}
	bs := e.o.blockSize()
	src := j.src
	history := len(j.prefix)
	var matches []pack.Match
	for len(src) > 0 {
		n := min(bs, len(src))
		matches = finder.FindMatches(matches[:0], src[:n])
		dst = b.appendBlock(dst, src[:n], matches, j.last && n == len(src), history)
		history += n
		src = src[n:]
	}
	return dst
}

// encodeParallel compresses src as one frame using concurrent jobs.
func (e *Encoder) encodeParallel(ctx context.Context, dst, src []byte) ([]byte, error) {
	var f frameEnc
	f.reset(&e.o, int64(len(src)))
	jobs := e.splitJobs(src, nil, true, true)
	e.log.WithField("jobs", len(jobs)).Debug("compressing in parallel")
	if err := e.runJobs(ctx, jobs); err != nil {
		return dst, err
	}
	dst = f.header().appendTo(dst)
	for _, j := range jobs {
		dst = append(dst, j.out...)
	}
	if e.o.Checksum {
		_, _ = f.hasher.Write(src)
	}
	return f.appendChecksum(dst), nil
}

// EncodeAllContext is EncodeAll with cancellation of parallel jobs.
func (e *Encoder) EncodeAllContext(ctx context.Context, src, dst []byte) ([]byte, error) {
	e.init()
	if e.o.Concurrency > 1 && len(src) > e.o.JobSize {
		return e.encodeParallel(ctx, dst, src)
	}
	if err := ctx.Err(); err != nil {
		return dst, err
	}
	return e.EncodeAll(src, dst), nil
}
