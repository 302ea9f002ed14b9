// Package worker drains the attempt-finalize queue: everything that should
// happen after a session emits its attempt but does not need to block the
// submit response — websocket fan-out and the result email.
package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"topaz-backend/internal/models"
	"topaz-backend/internal/repository"
	"topaz-backend/internal/results"
	"topaz-backend/internal/services"
	"topaz-backend/internal/websocket"
)

const FinalizeQueue = "queue:attempt-finalize"

type Pool struct {
	redis       *redis.Client
	email       *services.EmailService
	userRepo    *repository.UserRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, email *services.EmailService, userRepo *repository.UserRepo, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		email:       email,
		userRepo:    userRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

// Enqueue pushes a finalize job; called from the session completion hook.
func Enqueue(ctx context.Context, redisClient *redis.Client, job models.FinalizeJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return redisClient.LPush(ctx, FinalizeQueue, data).Err()
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	ctx := context.Background()
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		// Block briefly so the stop channel is checked regularly.
		res, err := p.redis.BRPop(ctx, 2*time.Second, FinalizeQueue).Result()
		if err != nil {
			if err != redis.Nil {
				log.Printf("Worker %d: queue read failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		var job models.FinalizeJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			log.Printf("Worker %d: dropping malformed job: %v", id, err)
			continue
		}

		p.process(ctx, job)
	}
}

// process is at-most-once: failures are logged and the job dropped, since
// the attempt itself is already durable.
func (p *Pool) process(ctx context.Context, job models.FinalizeJob) {
	percent := results.Percentage(job.Score, job.TotalQuestions)

	event := models.WSMessage{
		Type: "attempt_completed",
		Payload: models.AttemptCompletedEvent{
			AttemptID: job.AttemptID,
			TestID:    job.TestID,
			Score:     job.Score,
			Total:     job.TotalQuestions,
			Percent:   percent,
			TimedOut:  job.TimedOut,
		},
	}
	if job.TimedOut {
		event.Type = "time_expired"
	}

	if err := websocket.Publish(ctx, p.redis, job.UserID, event); err != nil {
		log.Printf("Failed to publish session event for attempt %s: %v", job.AttemptID, err)
	}

	user, err := p.userRepo.GetByID(ctx, job.UserID)
	if err != nil {
		log.Printf("Failed to load user for attempt %s: %v", job.AttemptID, err)
		return
	}

	if err := p.email.SendAttemptResult(user.Email, job.TestTitle, job.Score, job.TotalQuestions, percent, job.TimedOut); err != nil {
		log.Printf("Failed to email result for attempt %s: %v", job.AttemptID, err)
	}
}
