package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// Worker consumes email tasks and hands them to a Mailer.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(redisAddr string, mailer Mailer) *Worker {
	mux := asynq.NewServeMux()
	h := emailHandler(mailer)
	for _, t := range EmailTasks {
		mux.HandleFunc(t, h)
	}
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueEmails: 10,
			QueueAlerts: 5,
		},
	})
	return &Worker{server: server, mux: mux}
}

// Start runs the worker in the background.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start asynq worker: %w", err)
	}
	log.Println("[notify] asynq worker started")
	return nil
}

func (w *Worker) Shutdown() { w.server.Shutdown() }

func emailHandler(mailer Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p EmailPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
		}
		if p.Envelope.To == "" {
			log.Printf("[notify] %s has no recipient, dropping", t.Type())
			return nil
		}
		if err := mailer.Send(ctx, p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
			log.Printf("[notify][ERROR] %s send failed: %v", t.Type(), err)
			return err
		}
		log.Printf("[notify] %s sent -> to=%s ref=%s", t.Type(), p.Envelope.To, p.Reference)
		return nil
	}
}
