// Package audit records the append-only user activity log.
package audit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

var (
	// ErrUnknownEvent indicates an event code without a template.
	ErrUnknownEvent = errors.New("audit: unknown event code")
	// ErrMissingContextKey indicates a template placeholder had no value.
	ErrMissingContextKey = errors.New("audit: missing context key")
)

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// Activity is one immutable activity row.
type Activity struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Username  string    `json:"username"`
	EventCode EventCode `json:"event_code"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Writer appends activities inside the caller's transaction.
type Writer interface {
	InsertActivity(ctx context.Context, activity Activity) error
}

// Render formats the template for code with data.
func Render(code EventCode, data map[string]any) (string, error) {
	tmpl, ok := templates[code]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEvent, code)
	}
	var missing error
	msg := placeholder.ReplaceAllStringFunc(tmpl, func(token string) string {
		key := token[1 : len(token)-1]
		v, ok := data[key]
		if !ok {
			if missing == nil {
				missing = fmt.Errorf("%w: %s needs %q", ErrMissingContextKey, code, key)
			}
			return token
		}
		return fmt.Sprint(v)
	})
	if missing != nil {
		return "", missing
	}
	return msg, nil
}

// Emit renders the message for code and appends it through w. The actor's
// display name fills the {actor} placeholder.
func Emit(ctx context.Context, w Writer, actor shared.Actor, code EventCode, data map[string]any) error {
	values := make(map[string]any, len(data)+1)
	for k, v := range data {
		values[k] = v
	}
	values["actor"] = actor.Username
	msg, err := Render(code, values)
	if err != nil {
		return err
	}
	return w.InsertActivity(ctx, Activity{
		UserID:    actor.UserID(),
		Username:  actor.Username,
		EventCode: code,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	})
}
