package alerts_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitalzapata/wardsync/internal/alerts"
	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/netmon"
	"github.com/hospitalzapata/wardsync/internal/outbox"
	"github.com/hospitalzapata/wardsync/internal/transport"
)

func newService(t *testing.T) (*alerts.Service, *transport.MockGateway, *outbox.MemQueue, *netmon.Monitor) {
	t.Helper()

	var buf bytes.Buffer
	logger := events.NewTestLogger(events.ErrorLevel, "json", &buf)

	gateway := transport.NewMockGateway()
	queue := outbox.NewMemQueue()
	monitor := netmon.NewMonitor(logger)
	return alerts.NewService(gateway, queue, monitor, logger), gateway, queue, monitor
}

func TestTriggerOnline(t *testing.T) {
	svc, gateway, queue, _ := newService(t)

	gateway.AddResponse("POST", alerts.TriggerPath, map[string]interface{}{
		"data":    map[string]interface{}{"id": 3, "bedId": 1},
		"message": "alert sent",
	})

	res, err := svc.Trigger(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.False(t, res.Offline)

	count, err := queue.PendingCount(models.EntityAlerts)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTriggerOfflineKeepsSingleAlert(t *testing.T) {
	svc, _, queue, monitor := newService(t)
	monitor.SetOnline(false)

	res, err := svc.Trigger(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Offline)

	// Re-triggering replaces the queued alert
	_, err = svc.Trigger(context.Background(), "2")
	require.NoError(t, err)

	count, err := queue.PendingCount(models.EntityAlerts)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	pending, err := queue.ListPending(models.EntityAlerts)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.JSONEq(t, `{"bedId":"2"}`, string(pending[0].Payload))

	waiting, err := svc.Queued()
	require.NoError(t, err)
	assert.True(t, waiting)
}

func TestTriggerRejectedCarriesServerMessage(t *testing.T) {
	svc, gateway, queue, _ := newService(t)

	gateway.AddError("POST", alerts.TriggerPath, &models.APIError{
		StatusCode: 400,
		Message:    "no active admission for bed",
	})

	res, err := svc.Trigger(context.Background(), "9")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "no active admission for bed", res.Message)

	count, err := queue.PendingCount(models.EntityAlerts)
	require.NoError(t, err)
	assert.Zero(t, count, "rejected alerts are not queued")
}

func TestPendingListsServerAlerts(t *testing.T) {
	svc, gateway, _, _ := newService(t)

	gateway.AddResponse("GET", alerts.PendingPath, map[string]interface{}{
		"data": []map[string]interface{}{
			{"id": 3, "bedId": 1},
			{"id": 4, "bedId": 6},
		},
	})

	res, err := svc.Pending(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.JSONEq(t, `[{"id":3,"bedId":1},{"id":4,"bedId":6}]`, string(res.Data))
}

func TestResolveMarksAlertAttended(t *testing.T) {
	svc, gateway, _, _ := newService(t)

	gateway.AddResponse("PATCH", alerts.ResolvePath+"/3", map[string]interface{}{
		"message": "resolved",
	})

	res, err := svc.Resolve(context.Background(), "3")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, gateway.RequestCount("PATCH", alerts.ResolvePath+"/3"))
}

func TestPendingAndResolveFailFastOffline(t *testing.T) {
	svc, gateway, _, monitor := newService(t)
	monitor.SetOnline(false)

	_, err := svc.Pending(context.Background())
	require.ErrorIs(t, err, models.ErrRequiresConnectivity)

	_, err = svc.Resolve(context.Background(), "3")
	require.ErrorIs(t, err, models.ErrRequiresConnectivity)

	assert.Empty(t, gateway.Requests)
}

func TestTriggerTransientFailureQueues(t *testing.T) {
	svc, gateway, queue, monitor := newService(t)

	gateway.AddError("POST", alerts.TriggerPath, &models.APIError{StatusCode: 503})

	res, err := svc.Trigger(context.Background(), "4")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Offline)
	assert.False(t, monitor.Online())

	count, err := queue.PendingCount(models.EntityAlerts)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
