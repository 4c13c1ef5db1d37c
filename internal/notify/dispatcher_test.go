package notify

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestguard/internal/models"
	"github.com/forestguard/internal/store"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(_ *models.Alert, recipient string) error {
	f.sent = append(f.sent, recipient)
	return f.err
}

func newTestDispatcher() (*Dispatcher, *store.PreferenceStore, *store.NotificationStore) {
	prefs := store.NewPreferenceStore()
	records := store.NewNotificationStore()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewDispatcher(prefs, records, log), prefs, records
}

func urgentAlert() *models.Alert {
	return &models.Alert{
		ID:         "a1",
		TargetArea: "East Ridge",
		Level:      models.AlertLevelUrgent,
		Message:    "outbreak imminent",
	}
}

func TestDispatchRoutesBySubscription(t *testing.T) {
	d, prefs, records := newTestDispatcher()
	email := &fakeSender{}
	d.Register(models.ChannelEmail, email)

	prefs.Set(&models.NotificationPreference{UserID: "ranger@forest.example", Email: true})
	prefs.Set(&models.NotificationPreference{
		UserID:           "low-only@forest.example",
		Email:            true,
		SubscribedLevels: []models.AlertLevel{models.AlertLevelLow},
	})

	require.True(t, d.Dispatch(urgentAlert()))
	assert.Equal(t, []string{"ranger@forest.example"}, email.sent)

	recs := records.ByAlert("a1")
	require.Len(t, recs, 1)
	assert.Equal(t, models.DeliverySent, recs[0].Status)
}

func TestDispatchToBypassesSubscriptionFilter(t *testing.T) {
	d, prefs, records := newTestDispatcher()
	email := &fakeSender{}
	d.Register(models.ChannelEmail, email)

	// Subscribed to LOW only, but named explicitly.
	prefs.Set(&models.NotificationPreference{
		UserID:           "low-only@forest.example",
		Email:            true,
		SubscribedLevels: []models.AlertLevel{models.AlertLevelLow},
	})

	require.True(t, d.DispatchTo(urgentAlert(), []string{
		"low-only@forest.example",
		"unknown@forest.example",
	}))
	assert.ElementsMatch(t, []string{
		"low-only@forest.example",
		"unknown@forest.example",
	}, email.sent)
	assert.Len(t, records.ByAlert("a1"), 2)
}

func TestDispatchMultipleChannels(t *testing.T) {
	d, prefs, records := newTestDispatcher()
	email := &fakeSender{}
	sms := &fakeSender{}
	d.Register(models.ChannelEmail, email)
	d.Register(models.ChannelSMS, sms)

	prefs.Set(&models.NotificationPreference{UserID: "u1", Email: true, SMS: true})

	require.True(t, d.Dispatch(urgentAlert()))
	assert.Len(t, email.sent, 1)
	assert.Len(t, sms.sent, 1)
	assert.Len(t, records.ByAlert("a1"), 2)
}

func TestDispatchRecordsFailure(t *testing.T) {
	d, prefs, records := newTestDispatcher()
	d.Register(models.ChannelEmail, &fakeSender{err: errors.New("smtp down")})

	prefs.Set(&models.NotificationPreference{UserID: "u1", Email: true})

	assert.False(t, d.Dispatch(urgentAlert()))

	recs := records.ByAlert("a1")
	require.Len(t, recs, 1)
	assert.Equal(t, models.DeliveryFailed, recs[0].Status)
	assert.Equal(t, "smtp down", recs[0].Detail)
}

func TestDispatchRecordsUnregisteredChannelAsSkipped(t *testing.T) {
	d, prefs, records := newTestDispatcher()

	prefs.Set(&models.NotificationPreference{UserID: "u1", System: true})

	// An unregistered channel does not fail the dispatch, but the
	// attempt still lands in the audit history.
	assert.True(t, d.Dispatch(urgentAlert()))

	recs := records.ByAlert("a1")
	require.Len(t, recs, 1)
	assert.Equal(t, models.DeliverySkipped, recs[0].Status)
	assert.Equal(t, models.ChannelSystem, recs[0].Channel)
	assert.Equal(t, "no sender registered", recs[0].Detail)
}

func TestDispatchNoPreferencesNoDeliveries(t *testing.T) {
	d, _, records := newTestDispatcher()
	d.Register(models.ChannelEmail, &fakeSender{})

	assert.True(t, d.Dispatch(urgentAlert()))
	assert.Empty(t, records.All())
}

func TestAddressOfOverridesRecipient(t *testing.T) {
	d, prefs, _ := newTestDispatcher()
	email := &fakeSender{}
	d.Register(models.ChannelEmail, email)
	d.AddressOf = func(userID string, _ models.Channel) string {
		return userID + "@forest.example"
	}

	prefs.Set(&models.NotificationPreference{UserID: "u1", Email: true})

	require.True(t, d.Dispatch(urgentAlert()))
	assert.Equal(t, []string{"u1@forest.example"}, email.sent)
}

func TestSMSSender(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSMSSender(srv.URL, "secret")
	err := s.Send(urgentAlert(), "+15550100")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Contains(t, string(gotBody), "+15550100")
	assert.Contains(t, string(gotBody), "URGENT")
}

func TestSMSSenderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSMSSender(srv.URL, "secret")
	assert.Error(t, s.Send(urgentAlert(), "+15550100"))
}
