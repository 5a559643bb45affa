package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuotationExpiry expires quotations whose validity has passed.
	TaskQuotationExpiry = "quotations:expire"
	// TaskDiscountLifecycle deactivates ended discounts and activates due ones.
	TaskDiscountLifecycle = "discounts:lifecycle"
)

// DatePayload pins a run to a business date. An empty date means "today" in
// the scheduler time zone.
type DatePayload struct {
	Date string `json:"date,omitempty"`
}

// NewQuotationExpiryTask builds a quotation expiry task.
func NewQuotationExpiryTask(date string) (*asynq.Task, error) {
	return newDateTask(TaskQuotationExpiry, date)
}

// NewDiscountLifecycleTask builds a discount lifecycle task.
func NewDiscountLifecycleTask(date string) (*asynq.Task, error) {
	return newDateTask(TaskDiscountLifecycle, date)
}

func newDateTask(taskType, date string) (*asynq.Task, error) {
	if date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return nil, fmt.Errorf("jobs: invalid date %q: %w", date, err)
		}
	}
	body, err := json.Marshal(DatePayload{Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}

// businessDate resolves the payload date in loc, falling back to now.
func businessDate(raw []byte, loc *time.Location, now time.Time) (time.Time, error) {
	var payload DatePayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return time.Time{}, err
		}
	}
	if payload.Date != "" {
		d, err := time.ParseInLocation(time.DateOnly, payload.Date, loc)
		if err != nil {
			return time.Time{}, err
		}
		return dateOnly(d), nil
	}
	local := now.In(loc)
	return dateOnly(local), nil
}

// dateOnly keeps the calendar date as a UTC midnight, matching DATE columns.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
