package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/slack-go/slack"

	"github.com/forestguard/internal/models"
)

// SlackSender posts alerts to a Slack channel. It backs the "system"
// preference channel, so the recipient argument is ignored: system
// notifications land in the shared operations channel.
type SlackSender struct {
	client  *slack.Client
	channel string
}

func NewSlackSender(token, channel string) *SlackSender {
	return &SlackSender{
		client:  slack.New(token),
		channel: channel,
	}
}

func (s *SlackSender) Send(a *models.Alert, _ string) error {
	attachment := slack.Attachment{
		Color: alertColor(a.Level),
		Title: fmt.Sprintf("Pest Alert: %s", a.TargetArea),
		Text:  a.Message,
		Fields: []slack.AttachmentField{
			{Title: "Pest", Value: a.PestID, Short: true},
			{Title: "Level", Value: string(a.Level), Short: true},
			{Title: "Urgency", Value: string(a.Urgency), Short: true},
			{Title: "Severity", Value: string(a.Severity), Short: true},
		},
		Footer: "ForestGuard Alert System",
		Ts:     json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
	}
	_, _, err := s.client.PostMessage(s.channel, slack.MsgOptionAttachments(attachment))
	return err
}

func alertColor(level models.AlertLevel) string {
	switch level {
	case models.AlertLevelUrgent:
		return "#ff0000"
	case models.AlertLevelHigh:
		return "#ffa500"
	case models.AlertLevelMedium:
		return "#ffcc00"
	case models.AlertLevelLow:
		return "#36a64f"
	default:
		return "#808080"
	}
}
