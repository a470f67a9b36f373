package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"presensi-backend/internal/geofence"
)

const (
	// BatchQueue is the Redis list location batches are pushed onto.
	BatchQueue = "queue:location-batches"

	cycleLockTTL = 30 * time.Second
	maxRetries   = 3
)

// queuedBatch wraps a location batch with its delivery attempt count so a
// transiently failed cycle can be re-queued with backoff.
type queuedBatch struct {
	geofence.Batch
	Retries int `json:"retries"`
}

// Pool consumes location batches off the Redis queue and runs them through
// the geofence monitor. A per-user lock serializes cycles so two workers
// never interleave transitions for the same user.
type Pool struct {
	redis       *redis.Client
	monitor     *geofence.Monitor
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, monitor *geofence.Monitor, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		monitor:     monitor,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d location workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// Enqueue pushes a batch onto the queue for asynchronous processing.
func Enqueue(ctx context.Context, redisClient *redis.Client, batch geofence.Batch) error {
	data, err := json.Marshal(queuedBatch{Batch: batch})
	if err != nil {
		return fmt.Errorf("failed to encode location batch: %w", err)
	}
	return redisClient.LPush(ctx, BatchQueue, data).Err()
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, BatchQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var qb queuedBatch
		if err := json.Unmarshal([]byte(result[1]), &qb); err != nil {
			log.Printf("Worker %d: failed to parse batch: %v", id, err)
			continue
		}

		// One cycle per user at a time. A held lock means another worker
		// is mid-cycle for this user; put the batch back for later.
		lockKey := fmt.Sprintf("geofence_cycle_lock:%d", qb.UserID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", cycleLockTTL).Result()
		if err != nil || !locked {
			data, _ := json.Marshal(qb)
			p.redis.RPush(ctx, BatchQueue, data)
			continue
		}

		if err := p.monitor.ProcessBatch(ctx, qb.Batch); err != nil {
			p.handleFailure(ctx, &qb, err)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) handleFailure(ctx context.Context, qb *queuedBatch, err error) {
	// Cycles aborted for a structural reason will fail the same way every
	// time; only transient store failures are worth retrying.
	if errors.Is(err, geofence.ErrPlatformDelivery) ||
		errors.Is(err, geofence.ErrConfigMissing) ||
		errors.Is(err, geofence.ErrInvalidIdentity) {
		log.Printf("Batch %s dropped for user %d: %v", qb.ID, qb.UserID, err)
		return
	}

	qb.Retries++
	if qb.Retries >= maxRetries {
		log.Printf("Batch %s failed permanently for user %d: %v", qb.ID, qb.UserID, err)
		return
	}

	log.Printf("Batch %s failed for user %d (attempt %d): %v, retrying", qb.ID, qb.UserID, qb.Retries, err)
	data, marshalErr := json.Marshal(qb)
	if marshalErr != nil {
		return
	}
	backoff := time.Duration(1<<uint(qb.Retries)) * time.Second
	time.AfterFunc(backoff, func() {
		p.redis.LPush(context.Background(), BatchQueue, data)
	})
}
