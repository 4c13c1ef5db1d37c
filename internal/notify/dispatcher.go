// Package notify fans alerts out to subscribed users over their chosen
// channels. Delivery is best effort: every attempt is recorded in the
// notification history and failures never reach the alert path.
package notify

import (
	"github.com/sirupsen/logrus"

	"github.com/forestguard/internal/models"
	"github.com/forestguard/internal/store"
)

// Sender delivers one alert to one recipient over one channel.
type Sender interface {
	Send(a *models.Alert, recipient string) error
}

// Dispatcher resolves an alert's recipients from the preference store
// and pushes the alert through the registered channel senders.
type Dispatcher struct {
	prefs   *store.PreferenceStore
	records *store.NotificationStore
	senders map[models.Channel]Sender
	log     *logrus.Logger

	// AddressOf maps a user id to a channel address. Defaults to the
	// identity mapping, for deployments where user ids are addresses.
	AddressOf func(userID string, ch models.Channel) string
}

func NewDispatcher(prefs *store.PreferenceStore, records *store.NotificationStore, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.New()
	}
	return &Dispatcher{
		prefs:   prefs,
		records: records,
		senders: make(map[models.Channel]Sender),
		log:     log,
	}
}

// Register attaches a sender for a channel, replacing any previous one.
func (d *Dispatcher) Register(ch models.Channel, s Sender) {
	d.senders[ch] = s
}

// Preferences exposes the preference store for the API layer.
func (d *Dispatcher) Preferences() *store.PreferenceStore { return d.prefs }

// Records exposes the delivery history for the API layer.
func (d *Dispatcher) Records() *store.NotificationStore { return d.records }

// Dispatch sends the alert to every user subscribed to its level, on
// every channel the user switched on. Returns false when at least one
// attempted delivery failed.
func (d *Dispatcher) Dispatch(a *models.Alert) bool {
	ok := true
	for _, pref := range d.prefs.All() {
		p := pref
		if !p.SubscribedTo(a.Level) {
			continue
		}
		for _, ch := range p.Channels() {
			if !d.deliver(a, &p, ch) {
				ok = false
			}
		}
	}
	return ok
}

// DispatchTo sends the alert to an explicitly named audience. Named
// recipients bypass the level subscription filter; users without a
// preference on file are reached over email.
func (d *Dispatcher) DispatchTo(a *models.Alert, recipients []string) bool {
	ok := true
	for _, userID := range recipients {
		p, found := d.prefs.Get(userID)
		if !found {
			p = &models.NotificationPreference{UserID: userID, Email: true}
		}
		for _, ch := range p.Channels() {
			if !d.deliver(a, p, ch) {
				ok = false
			}
		}
	}
	return ok
}

func (d *Dispatcher) deliver(a *models.Alert, p *models.NotificationPreference, ch models.Channel) bool {
	recipient := p.UserID
	if d.AddressOf != nil {
		recipient = d.AddressOf(p.UserID, ch)
	}

	sender, ok := d.senders[ch]
	if !ok {
		// Still an attempt as far as the audit history is concerned.
		d.log.WithField("channel", ch).Debug("no sender registered, skipping")
		d.records.Append(models.NotificationRecord{
			AlertID:   a.ID,
			Recipient: recipient,
			Channel:   ch,
			Status:    models.DeliverySkipped,
			Detail:    "no sender registered",
		})
		return true
	}

	rec := models.NotificationRecord{
		AlertID:   a.ID,
		Recipient: recipient,
		Channel:   ch,
		Status:    models.DeliverySent,
	}
	if err := sender.Send(a, recipient); err != nil {
		rec.Status = models.DeliveryFailed
		rec.Detail = err.Error()
		d.log.WithError(err).WithFields(logrus.Fields{
			"alert":     a.ID,
			"channel":   ch,
			"recipient": recipient,
		}).Warn("notification delivery failed")
	}
	d.records.Append(rec)
	return rec.Status == models.DeliverySent
}
