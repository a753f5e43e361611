package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/inventory/internal/apperr"
	"github.com/Skotchmaster/inventory/internal/events"
	"github.com/Skotchmaster/inventory/internal/logging"
)

const sideEffectTimeout = 5 * time.Second

// Actor is the authenticated caller on whose behalf a write runs.
type Actor struct {
	UserID uint
	Role   string
}

// notFound turns a missing-row error into the given not-found condition and
// leaves every other error alone.
func notFound(err error, resource, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource, message)
	}
	return err
}

// asDuplicate reports a late unique violation the same way the pre-check does
// when the violated column is one of written.
func asDuplicate(err error, written map[string]string) error {
	var ce *apperr.ConstraintError
	if !errors.As(err, &ce) || ce.Kind != apperr.UniqueViolation || ce.Column == "" {
		return err
	}
	if v, ok := written[ce.Column]; ok {
		return apperr.NewDuplicate(ce.Column, v)
	}
	return err
}

// publish never fails the caller; a broker outage is logged and dropped.
func publish(ctx context.Context, pub events.Publisher, topic string, ev events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := pub.Publish(ctx, topic, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_error", "topic", topic, "type", ev.Type, "entity_id", ev.EntityID, "error", err)
	}
}
