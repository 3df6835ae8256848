package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/netmon"
	"github.com/hospitalzapata/wardsync/internal/outbox"
	"github.com/hospitalzapata/wardsync/internal/transport"
)

// API routes.
const (
	TriggerPath = "/help/trigger"
	PendingPath = "/help/pending"
	ResolvePath = "/help/resolve"
)

// pendingAlertID keys the single queued alert. Re-triggering while
// offline replaces the queued alert instead of stacking a second one.
const pendingAlertID = "help_alert_pending"

// Service triggers help alerts for a bed.
type Service struct {
	gateway transport.Gateway
	queue   outbox.Queue
	monitor *netmon.Monitor
	logger  *events.Logger
}

// NewService creates an alert service.
func NewService(gateway transport.Gateway, queue outbox.Queue, monitor *netmon.Monitor, logger *events.Logger) *Service {
	return &Service{
		gateway: gateway,
		queue:   queue,
		monitor: monitor,
		logger:  logger.WithField("component", "alerts"),
	}
}

// Trigger raises a help alert for a bed. Offline, the alert is queued
// and the most recent trigger wins.
func (s *Service) Trigger(ctx context.Context, bedID string) (models.Result, error) {
	payload := map[string]string{"bedId": bedID}
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.Result{}, fmt.Errorf("marshal payload: %w", err)
	}

	if s.monitor.Online() {
		env, err := s.gateway.Post(ctx, TriggerPath, payload)
		switch {
		case err == nil:
			s.monitor.SetOnline(true)
			return models.OnlineOK(env.Data), nil
		case !models.IsTransient(err):
			return models.Rejected(apiMessage(err)), nil
		default:
			s.monitor.SetOnline(false)
		}
	}

	// Replace any queued alert so only the latest survives.
	if _, err := s.queue.CancelForTarget(models.EntityAlerts, pendingAlertID); err != nil {
		return models.Result{}, fmt.Errorf("replace queued alert: %w", err)
	}

	if err := s.queue.Enqueue(outbox.Entry{
		OperationID: outbox.NewOperationID(),
		Method:      outbox.MethodCreate,
		Entity:      models.EntityAlerts,
		TargetID:    pendingAlertID,
		Payload:     raw,
		Status:      outbox.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return models.Result{}, fmt.Errorf("enqueue alert: %w", err)
	}

	s.logger.WithField("bed_id", bedID).Info("Help alert queued")
	return models.QueuedOK(nil, "alert queued, will send when online"), nil
}

// Queued reports whether a help alert is waiting to be sent.
func (s *Service) Queued() (bool, error) {
	count, err := s.queue.PendingCount(models.EntityAlerts)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Pending lists the unresolved alerts the server knows about. Alerts
// are ephemeral and have no cached copy, so this read is online-only.
func (s *Service) Pending(ctx context.Context) (models.Result, error) {
	if !s.monitor.Online() {
		return models.Result{}, models.ErrRequiresConnectivity
	}

	env, err := s.gateway.Get(ctx, PendingPath)
	return s.finish(env, err)
}

// Resolve marks an alert as attended. Resolution moves server-owned
// state, so offline it fails fast rather than queueing.
func (s *Service) Resolve(ctx context.Context, alertID string) (models.Result, error) {
	if !s.monitor.Online() {
		return models.Result{}, models.ErrRequiresConnectivity
	}

	env, err := s.gateway.Patch(ctx, ResolvePath+"/"+alertID, nil)
	return s.finish(env, err)
}

func (s *Service) finish(env *models.Envelope, err error) (models.Result, error) {
	if err != nil {
		if models.IsTransient(err) {
			s.monitor.SetOnline(false)
			return models.Result{}, fmt.Errorf("%w: %v", models.ErrRequiresConnectivity, err)
		}
		return models.Rejected(apiMessage(err)), nil
	}

	s.monitor.SetOnline(true)
	return models.OnlineOK(env.Data), nil
}

func apiMessage(err error) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
