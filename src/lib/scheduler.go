package lib

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

var scheduler gocron.Scheduler

func NewScheduler(s gocron.Scheduler) {
	scheduler = s
}

func GetScheduler() (gocron.Scheduler, error) {
	if scheduler != nil {
		return scheduler, nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Error initializing Scheduler: %s\n", err.Error())
		return nil, err
	}
	scheduler = sched
	return sched, nil
}

// CreateCronJob runs handler every duration. Overlapping runs of the same job
// are skipped.
func CreateCronJob(name string, handler any, duration time.Duration, args ...any) (*string, error) {
	sched, err := GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return nil, err
	}
	j, err := sched.NewJob(
		gocron.DurationJob(duration),
		gocron.NewTask(handler, args...),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}
	id := j.ID().String()
	log.Printf("Job: %s %s every %s\n", id, j.Name(), duration)
	return &id, nil
}

func StartScheduler() error {
	sched, err := GetScheduler()
	if err != nil {
		return err
	}
	log.Printf("Jobs in queue: %d\n", len(sched.Jobs()))
	sched.Start()
	return nil
}

func StopScheduler() {
	if scheduler == nil {
		return
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Error stopping Scheduler: %s\n", err.Error())
	}
	scheduler = nil
}
