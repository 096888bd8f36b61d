package jobs

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"TicketMarket/utils"
	"TicketMarket/view"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	popTimeout   = 5 * time.Second
	redisBackoff = 5 * time.Second
)

// NotificationStore is what the worker reads to render a notification.
type NotificationStore interface {
	GetOrder(ctx context.Context, id primitive.ObjectID) (*collections.Order, error)
	GetEvent(ctx context.Context, id primitive.ObjectID) (*collections.Event, error)
	ListTicketsByOrder(ctx context.Context, orderID primitive.ObjectID) ([]collections.Ticket, error)
	GetTransfer(ctx context.Context, id primitive.ObjectID) (*collections.TicketTransfer, error)
}

type Mailer interface {
	SendEmail(payload utils.EmailPayload) error
}

type Worker struct {
	rdb        *redis.Client
	queue      string
	store      NotificationStore
	mailer     Mailer
	maxRetries int
}

func NewWorker(rdb *redis.Client, store NotificationStore, mailer Mailer, maxRetries int) *Worker {
	return &Worker{
		rdb:        rdb,
		queue:      consts.QueueNameNotification,
		store:      store,
		mailer:     mailer,
		maxRetries: maxRetries,
	}
}

// Run consumes the notification queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	logrus.WithField("queue", w.queue).Info("notification worker started")

	for {
		if ctx.Err() != nil {
			return nil
		}

		result, err := w.rdb.BLPop(ctx, popTimeout, w.queue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logrus.WithError(err).Warn("redis pop failed, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(redisBackoff):
			}
			continue
		}

		var job NotificationJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			logrus.WithError(err).Error("dropping undecodable job")
			continue
		}
		w.Process(ctx, job)
	}
}

// Process runs one job and re-enqueues it on a transient failure.
func (w *Worker) Process(ctx context.Context, job NotificationJob) {
	log := logrus.WithFields(logrus.Fields{"job_id": job.ID, "type": job.Type, "retry": job.RetryCount})

	err := w.handle(ctx, job)
	if err == nil {
		log.Info("job done")
		return
	}

	if errors.Is(err, consts.ErrFatalDataNotFound) || errors.Is(err, consts.ErrFatalInvalidData) {
		log.WithError(err).Error("dropping job with unusable data")
		return
	}

	if job.RetryCount >= w.maxRetries {
		log.WithError(err).Error("dropping job after max retries")
		return
	}

	job.RetryCount++
	log.WithError(err).Warn("job failed, re-enqueueing")
	if err := enqueue(ctx, w.rdb, w.queue, job); err != nil {
		log.WithError(err).Error("could not re-enqueue job")
	}
}

func (w *Worker) handle(ctx context.Context, job NotificationJob) error {
	switch job.Type {
	case consts.NotifyOrderPaid:
		id, err := jobObjectID(job, "order_id")
		if err != nil {
			return err
		}
		return w.sendOrderPaid(ctx, id)
	case consts.NotifyTransferInitiated, consts.NotifyTransferAccepted:
		id, err := jobObjectID(job, "transfer_id")
		if err != nil {
			return err
		}
		return w.sendTransfer(ctx, id, job.Type == consts.NotifyTransferAccepted)
	default:
		return fmt.Errorf("%w: unknown job type %q", consts.ErrFatalInvalidData, job.Type)
	}
}

func jobObjectID(job NotificationJob, key string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(job.Data[key])
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s=%q", consts.ErrFatalInvalidData, key, job.Data[key])
	}
	return id, nil
}

func fatalIfMissing(err error, sentinels ...error) error {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return fmt.Errorf("%w: %v", consts.ErrFatalDataNotFound, err)
		}
	}
	return err
}

func (w *Worker) sendOrderPaid(ctx context.Context, orderID primitive.ObjectID) error {
	order, err := w.store.GetOrder(ctx, orderID)
	if err != nil {
		return fatalIfMissing(err, consts.ErrOrderNotFound)
	}
	event, err := w.store.GetEvent(ctx, order.EventID)
	if err != nil {
		return fatalIfMissing(err, consts.ErrEventNotFound)
	}
	tickets, err := w.store.ListTicketsByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		// Issuance is retried by the next confirmation; try again later.
		return fmt.Errorf("order %s has no tickets yet", order.ID.Hex())
	}

	subject, body, images, err := view.BuildOrderPaidEmail(event, order, tickets)
	if err != nil {
		return fmt.Errorf("%w: %v", consts.ErrFatalInvalidData, err)
	}
	return w.mailer.SendEmail(utils.EmailPayload{
		To:             []string{order.BuyerEmail},
		Subject:        subject,
		HTMLBody:       body,
		EmbeddedImages: images,
	})
}

func (w *Worker) sendTransfer(ctx context.Context, transferID primitive.ObjectID, accepted bool) error {
	transfer, err := w.store.GetTransfer(ctx, transferID)
	if err != nil {
		return fatalIfMissing(err, consts.ErrTransferNotFound)
	}
	if !accepted && transfer.Status != consts.TransferPending {
		logrus.WithField("transfer_id", transfer.ID.Hex()).Info("transfer already resolved, skipping offer mail")
		return nil
	}
	event, err := w.store.GetEvent(ctx, transfer.EventID)
	if err != nil {
		return fatalIfMissing(err, consts.ErrEventNotFound)
	}

	to, subject, body, err := view.BuildTransferEmail(event, transfer, accepted)
	if err != nil {
		return fmt.Errorf("%w: %v", consts.ErrFatalInvalidData, err)
	}
	return w.mailer.SendEmail(utils.EmailPayload{To: []string{to}, Subject: subject, HTMLBody: body})
}
