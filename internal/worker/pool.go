package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueCaja = "jobs:caja"

	JobEventoCaja = "evento_caja"

	// MaxIntentos is how many times a job is processed before it goes to the DLQ.
	MaxIntentos = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// PublicarEventoCaja pushes a session transition to the caja queue.
func (d *Dispatcher) PublicarEventoCaja(ctx context.Context, evento dto.EventoCaja) error {
	return d.enqueue(ctx, QueueCaja, Job{Type: JobEventoCaja}, evento)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, job Job, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job.Payload = data
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Procesador handles the payload of one job type.
type Procesador interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Handlers maps job types to their processors.
type Handlers map[string]Procesador

// StartWorkerPool launches numWorkers goroutines consuming the caja queue.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers Handlers, numWorkers int) {
	d := NewDispatcher(rdb)
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, d, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, d *Dispatcher, handlers Handlers, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueCaja).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: brpop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			resultado := processJob(ctx, handlers, result[1])
			resolver(ctx, rdb, d, result[0], resultado)
		}
	}
}

// jobResult is the outcome of one processing attempt.
type jobResult struct {
	job   Job
	err   error
	fatal bool // undecodable or unknown: retrying cannot help
}

func processJob(ctx context.Context, handlers Handlers, raw string) jobResult {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return jobResult{job: Job{Payload: json.RawMessage(raw)}, err: fmt.Errorf("unmarshal job: %w", err), fatal: true}
	}
	h, ok := handlers[job.Type]
	if !ok {
		return jobResult{job: job, err: fmt.Errorf("tipo de job desconocido %q", job.Type), fatal: true}
	}
	job.Attempts++
	if err := h.Process(ctx, job.Payload); err != nil {
		var perm *ErrPermanente
		return jobResult{job: job, err: err, fatal: errors.As(err, &perm)}
	}
	return jobResult{job: job}
}

// resolver requeues a failed job or moves it to the DLQ once it is hopeless.
func resolver(ctx context.Context, rdb *redis.Client, d *Dispatcher, queue string, r jobResult) {
	if r.err == nil {
		return
	}
	if r.fatal || r.job.Attempts >= MaxIntentos {
		SendToDLQ(ctx, rdb, queue, r.job.Type, r.job.Payload, r.err.Error(), r.job.Attempts)
		return
	}
	log.Warn().
		Err(r.err).
		Str("queue", queue).
		Str("job_type", r.job.Type).
		Int("attempts", r.job.Attempts).
		Msg("worker: job failed, requeued")
	if err := d.enqueue(ctx, queue, Job{Type: r.job.Type, Attempts: r.job.Attempts}, r.job.Payload); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("worker: requeue failed")
	}
}

// ErrPermanente marks a processing error that retrying cannot fix.
type ErrPermanente struct{ Err error }

func (e *ErrPermanente) Error() string { return e.Err.Error() }
func (e *ErrPermanente) Unwrap() error { return e.Err }
