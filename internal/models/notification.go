package models

import (
	"time"
)

type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelSMS    Channel = "sms"
	ChannelSystem Channel = "system"
)

// NotificationPreference is a user's routing choice: which channels to
// use and which alert levels to subscribe to. A user with no preference
// on file receives nothing unless named explicitly in an alert's
// audience.
type NotificationPreference struct {
	UserID           string       `json:"user_id"`
	Email            bool         `json:"email"`
	SMS              bool         `json:"sms"`
	System           bool         `json:"system"`
	SubscribedLevels []AlertLevel `json:"subscribed_levels"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Channels lists the channels the user has switched on.
func (p *NotificationPreference) Channels() []Channel {
	var out []Channel
	if p.Email {
		out = append(out, ChannelEmail)
	}
	if p.SMS {
		out = append(out, ChannelSMS)
	}
	if p.System {
		out = append(out, ChannelSystem)
	}
	return out
}

// SubscribedTo reports whether the user wants alerts of the given
// level. An empty subscription list means all levels.
func (p *NotificationPreference) SubscribedTo(level AlertLevel) bool {
	if len(p.SubscribedLevels) == 0 {
		return true
	}
	for _, l := range p.SubscribedLevels {
		if l == level {
			return true
		}
	}
	return false
}

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
	DeliverySkipped DeliveryStatus = "SKIPPED"
)

// NotificationRecord is one delivery attempt for one recipient on one
// channel. Failures are recorded here, never surfaced as errors to the
// alert path.
type NotificationRecord struct {
	ID        string         `json:"id"`
	AlertID   string         `json:"alert_id"`
	Recipient string         `json:"recipient"`
	Channel   Channel        `json:"channel"`
	Status    DeliveryStatus `json:"status"`
	Detail    string         `json:"detail,omitempty"`
	SentAt    time.Time      `json:"sent_at"`
}
