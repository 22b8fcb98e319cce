package dupescan

import (
	"sync"
)

// ============================================================================
// HASH JOB MANAGEMENT
// ============================================================================

// hashJob is one unit of work for the pool: digest one file, either fully
// or only its leading prefix bytes.
type hashJob struct {
	record     *FileRecord
	prefixOnly bool
}

// hashOutcome is what a worker sends back for one job. Either digest or
// err is set.
type hashOutcome struct {
	record     *FileRecord
	digest     []byte
	prefixOnly bool
	err        error
}

// hashPool distributes digest jobs across a fixed set of workers. The job
// channel is bounded so submission applies backpressure instead of
// buffering all pending work. Workers send outcomes to a single collector;
// no state is shared between workers beyond the channels.
type hashPool struct {
	algorithm    *HashAlgorithm
	bufferSize   int
	prefixSize   int64
	jobChan      chan *hashJob
	resultChan   chan *hashOutcome
	wg           sync.WaitGroup
	shutdownChan <-chan struct{}
	closed       bool       // track if jobChan is closed
	closeMutex   sync.Mutex // protect closed flag
	progress     *ScanProgress
}

// newHashPool creates a pool and starts its workers
func newHashPool(numWorkers int, algorithm *HashAlgorithm, bufferSize int, prefixSize int64, progress *ScanProgress, shutdownChan <-chan struct{}) *hashPool {
	pool := &hashPool{
		algorithm:    algorithm,
		bufferSize:   bufferSize,
		prefixSize:   prefixSize,
		jobChan:      make(chan *hashJob, hashJobChanDepth),
		resultChan:   make(chan *hashOutcome, hashJobChanDepth),
		shutdownChan: shutdownChan,
		progress:     progress,
	}

	for i := 0; i < numWorkers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// Submit queues one job, blocking when the pool is saturated. Returns
// false once shutdown is requested; no new work is accepted after that.
func (hp *hashPool) Submit(job *hashJob) bool {
	select {
	case hp.jobChan <- job:
		return true
	case <-hp.shutdownChan:
		return false
	}
}

// FinishSubmitting signals that no more jobs will be submitted
func (hp *hashPool) FinishSubmitting() {
	hp.closeMutex.Lock()
	defer hp.closeMutex.Unlock()

	if !hp.closed {
		close(hp.jobChan)
		hp.closed = true
	}
}

// Wait blocks until every submitted job has been processed, then closes
// result delivery so the collector can drain and exit.
func (hp *hashPool) Wait() {
	hp.wg.Wait()
	close(hp.resultChan)
}

// worker processes jobs until the job channel closes or shutdown is
// requested. In-flight chunked digests notice shutdown between reads.
func (hp *hashPool) worker() {
	defer hp.wg.Done()

	for {
		select {
		case job, ok := <-hp.jobChan:
			if !ok {
				return
			}

			outcome := hp.runJob(job)

			select {
			case hp.resultChan <- outcome:
			case <-hp.shutdownChan:
				return
			}

		case <-hp.shutdownChan:
			return
		}
	}
}

func (hp *hashPool) runJob(job *hashJob) *hashOutcome {
	outcome := &hashOutcome{
		record:     job.record,
		prefixOnly: job.prefixOnly,
	}

	if IsDebugEnabled("pool") {
		VerboseLog(3, "pool: hashing %s (prefix=%t)", job.record.Path, job.prefixOnly)
	}

	if job.prefixOnly {
		outcome.digest, outcome.err = HashFilePrefix(job.record.Path, hp.algorithm, hp.prefixSize)
		if outcome.err == nil {
			hp.progress.PrefixHashed.Add(1)
			if job.record.Size < hp.prefixSize {
				hp.progress.BytesHashed.Add(job.record.Size)
			} else {
				hp.progress.BytesHashed.Add(hp.prefixSize)
			}
		}
	} else {
		outcome.digest, outcome.err = HashFileInterruptible(job.record.Path, hp.algorithm, hp.bufferSize, hp.shutdownChan)
		if outcome.err == nil {
			hp.progress.FullHashed.Add(1)
			hp.progress.BytesHashed.Add(job.record.Size)
		}
	}

	if IsDebugEnabled("pool") && outcome.err != nil {
		VerboseLog(3, "pool: hash failed for %s: %v", job.record.Path, outcome.err)
	}

	return outcome
}
