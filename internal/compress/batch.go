package compress

import (
	"context"
	"runtime"
	"sync"
)

// Options tunes one batch run.
type Options struct {
	// Workers is the number of items processed in parallel. Each worker
	// holds at most one decoded raster, so this is also the memory cap.
	// Defaults to the number of CPUs.
	Workers int
	// MaxItems is the batch ceiling. Input beyond it is not processed; the
	// batch state carries a truncation notice instead. Defaults to 500.
	MaxItems int
}

const defaultMaxItems = 500

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.MaxItems <= 0 {
		o.MaxItems = defaultMaxItems
	}
	return o
}

// Item is one emitted batch entry: either a named result or a per-item
// failure. A failure never aborts the batch.
type Item struct {
	Index  int
	Result Result
	Err    error
}

type job struct {
	idx int
	src SourceImage
}

type outcome struct {
	idx  int
	name string // input name, for failure reporting
	res  Result
	err  error
}

// Run processes a stream of source images against one target and emits
// results in input order. Results are produced lazily: nothing is buffered
// beyond the reorder window of completed-but-out-of-order items. When the
// context is canceled the pipeline stops pulling input and releases in-flight
// rasters; the output channel is closed either way.
//
// After truncation Run stops reading from in, so producers must watch the
// output channel or the context rather than send unconditionally.
func Run(ctx context.Context, in <-chan SourceImage, target Target, namer *Namer, opts Options) (<-chan Item, *BatchState, error) {
	if err := target.Validate(); err != nil {
		return nil, nil, err
	}
	opts = opts.withDefaults()

	state := &BatchState{}
	jobs := make(chan job)
	results := make(chan outcome, opts.Workers)
	out := make(chan Item)

	// Dispatcher: assigns indices and enforces the batch ceiling.
	go func() {
		defer close(jobs)
		idx := 0
		for {
			select {
			case src, ok := <-in:
				if !ok {
					return
				}
				if idx >= opts.MaxItems {
					state.markTruncated()
					return
				}
				select {
				case jobs <- job{idx: idx, src: src}:
					state.recordInput(int64(len(src.Data)))
					idx++
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				o := process(j, target, state)
				select {
				case results <- o:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collector: restores input order and applies the naming policy. It is
	// the only goroutine that touches the namer.
	go func() {
		defer close(out)
		pending := make(map[int]outcome)
		next := 0
		for o := range results {
			pending[o.idx] = o
			for {
				cur, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				emit(ctx, out, cur, namer, state)
				next++
			}
		}
	}()

	return out, state, nil
}

// process handles one item end to end. The decoded raster lives only inside
// this call; it is released before the outcome is handed back.
func process(j job, target Target, state *BatchState) outcome {
	raster, err := Decode(j.src.Data)
	if err != nil {
		return outcome{idx: j.idx, name: j.src.Name, err: err}
	}
	state.rasterAcquired()
	res, err := Fit(j.src, raster, target)
	raster.release()
	state.rasterReleased()
	if err != nil {
		return outcome{idx: j.idx, name: j.src.Name, err: err}
	}
	return outcome{idx: j.idx, name: j.src.Name, res: res}
}

func emit(ctx context.Context, out chan<- Item, o outcome, namer *Namer, state *BatchState) {
	state.recordProcessed()

	if o.err == nil {
		name, err := namer.Name(o.res.Name, o.res.Untouched)
		if err == nil {
			o.res.Name = name
		} else {
			o.err = err
		}
	} else {
		// A failed item still consumes its slot in the custom-name list so
		// later items keep their intended names.
		namer.Skip()
	}

	if o.err != nil {
		state.recordFailure(Failure{Index: o.idx, Name: o.name, Reason: o.err})
		select {
		case out <- Item{Index: o.idx, Err: o.err}:
		case <-ctx.Done():
		}
		return
	}

	select {
	case out <- Item{Index: o.idx, Result: o.res}:
	case <-ctx.Done():
	}
}
