package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOfferExpire fires at the offer deadline and invalidates rendered pages.
	TaskOfferExpire = "offer:expire"
)

// OfferExpirePayload identifies the offer run whose deadline passed.
type OfferExpirePayload struct {
	Year     int       `json:"year"`
	Deadline time.Time `json:"deadline"`
}

// OfferExpireTaskID is the unique task id for a year's expiry so that every
// instance enqueueing at startup schedules a single task.
func OfferExpireTaskID(year int) string {
	return fmt.Sprintf("%s:%d", TaskOfferExpire, year)
}

// NewOfferExpireTask constructs an Asynq task.
func NewOfferExpireTask(payload OfferExpirePayload) (*asynq.Task, error) {
	if payload.Year <= 0 || payload.Deadline.IsZero() {
		return nil, errors.New("offer expire: year and deadline required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOfferExpire, data), nil
}
