package mailer

import (
	"context"
	"log"
	"rentals/src/lib"
	"sync"
	"time"
)

type SendFunc func(ctx context.Context, input *lib.SendMailInput) error

// Queue delivers emails from a background worker so request handlers never
// wait on SMTP.
type Queue struct {
	send    SendFunc
	jobs    chan *lib.SendMailInput
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewQueue(send SendFunc, size int) *Queue {
	return &Queue{
		send:    send,
		jobs:    make(chan *lib.SendMailInput, size),
		timeout: 30 * time.Second,
	}
}

func (q *Queue) Start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for input := range q.jobs {
			ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
			if err := q.send(ctx, input); err != nil {
				log.Printf("[Mailer] could not send %q to %v: %s\n", input.Subject, input.To, err.Error())
			}
			cancel()
		}
	}()
}

// NewMailerMessage queues an email, dropping it when the queue is full.
func (q *Queue) NewMailerMessage(input *lib.SendMailInput) bool {
	select {
	case q.jobs <- input:
		return true
	default:
		log.Printf("[Mailer] queue full, dropping %q to %v\n", input.Subject, input.To)
		return false
	}
}

// Stop drains the queue and waits for the worker.
func (q *Queue) Stop() {
	close(q.jobs)
	q.wg.Wait()
}
