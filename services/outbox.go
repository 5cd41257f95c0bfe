package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const outboxMaxRetry = 5

// Sender delivers one outbox event.
type Sender func(ctx context.Context, ob *models.SocialOutbox) error

// OutboxRelayer drains pending social_outbox rows to a Sender.
type OutboxRelayer struct {
	db        *gorm.DB
	batchSize int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(db *gorm.DB, sender Sender) *OutboxRelayer {
	return &OutboxRelayer{
		db:        db,
		batchSize: 200,
		interval:  time.Second,
		sender:    sender,
	}
}

// Run polls the outbox until ctx is cancelled.
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.DrainOnce(ctx); err != nil {
				utils.Sugar.Errorf("outbox drain: %v", err)
			}
		}
	}
}

// DrainOnce delivers one batch and returns how many rows were sent.
// Failed rows are retried on later passes until outboxMaxRetry.
func (r *OutboxRelayer) DrainOnce(ctx context.Context) (int, error) {
	var rows []models.SocialOutbox
	err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", models.OutboxPending, models.OutboxFailed, outboxMaxRetry).
		Order("id ASC").
		Limit(r.batchSize).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			utils.Sugar.Warnw("outbox send failed", "id", ob.ID, "type", ob.EventType, "err", err)
			r.db.WithContext(ctx).Model(&models.SocialOutbox{}).Where("id = ?", ob.ID).
				Updates(map[string]any{"status": models.OutboxFailed, "retry": gorm.Expr("retry + 1")})
			continue
		}
		r.db.WithContext(ctx).Model(&models.SocialOutbox{}).Where("id = ?", ob.ID).
			Update("status", models.OutboxSent)
		sent++
	}
	return sent, nil
}

// LogSender writes events to the application log; used when Kafka is not configured.
func LogSender(_ context.Context, ob *models.SocialOutbox) error {
	utils.Logger.Info("outbox event",
		zap.String("type", ob.EventType),
		zap.Uint("actor", ob.ActorID),
		zap.Uint("subject", ob.SubjectID),
		zap.String("payload", ob.Payload),
	)
	return nil
}

// KafkaSender publishes events keyed by actor so one user's events stay ordered.
func KafkaSender(p *utils.KafkaProducer) Sender {
	return func(ctx context.Context, ob *models.SocialOutbox) error {
		return p.Send(ctx, utils.MakeKeyFromID(ob.ActorID), []byte(ob.Payload))
	}
}

func insertOutbox(tx *gorm.DB, event string, actor, subject uint, extra map[string]any) error {
	body := map[string]any{
		"event":      event,
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"actor":      actor,
		"subject":    subject,
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tx.Create(&models.SocialOutbox{
		EventType: event,
		ActorID:   actor,
		SubjectID: subject,
		Payload:   string(payload),
		Status:    models.OutboxPending,
	}).Error
}
