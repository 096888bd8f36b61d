package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketmarket_reservations_total",
			Help: "Inventory reservation attempts by result",
		},
		[]string{"result"},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketmarket_order_transitions_total",
			Help: "Order state transitions",
		},
		[]string{"to"},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketmarket_tickets_issued_total",
			Help: "Tickets minted",
		},
		[]string{"kind"},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketmarket_check_ins_total",
			Help: "Check-in attempts by result",
		},
		[]string{"result"},
	)

	transfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketmarket_transfers_total",
			Help: "Transfer workflow actions",
		},
		[]string{"action"},
	)

	sweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketmarket_swept_total",
			Help: "Abandoned orders and reservations released by the sweeper",
		},
		[]string{"kind"},
	)

	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ticketmarket_queue_length",
			Help: "Current length of a redis job queue",
		},
		[]string{"queue"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketmarket_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func TrackReservation(result string) {
	reservations.WithLabelValues(result).Inc()
}

func TrackOrderTransition(to string) {
	orderTransitions.WithLabelValues(to).Inc()
}

func TrackTicketIssued(kind string) {
	ticketsIssued.WithLabelValues(kind).Inc()
}

func TrackCheckIn(result string) {
	checkIns.WithLabelValues(result).Inc()
}

func TrackTransfer(action string) {
	transfers.WithLabelValues(action).Inc()
}

func TrackSwept(kind string, n int) {
	if n > 0 {
		sweeps.WithLabelValues(kind).Add(float64(n))
	}
}

func ObserveRequest(method, route, status string, d time.Duration) {
	requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Monitor samples redis backed queues on an interval.
type Monitor struct {
	redis    *redis.Client
	queues   []string
	interval time.Duration
}

func NewMonitor(redisClient *redis.Client, queues ...string) *Monitor {
	return &Monitor{redis: redisClient, queues: queues, interval: 30 * time.Second}
}

// Run blocks until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.collectQueueMetrics(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) collectQueueMetrics(ctx context.Context) {
	for _, q := range m.queues {
		length, err := m.redis.LLen(ctx, q).Result()
		if err != nil {
			logrus.WithError(err).WithField("queue", q).Debug("could not sample queue length")
			continue
		}
		queueLength.WithLabelValues(q).Set(float64(length))
	}
}
