package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/forestguard/internal/api"
	"github.com/forestguard/internal/archive"
	"github.com/forestguard/internal/config"
	"github.com/forestguard/internal/engine"
	"github.com/forestguard/internal/logging"
	"github.com/forestguard/internal/models"
	"github.com/forestguard/internal/notify"
	"github.com/forestguard/internal/report"
	"github.com/forestguard/internal/store"
	"github.com/forestguard/internal/sweep"
)

func main() {
	// .env is optional; real config comes from config.yaml and env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.File)

	dispatcher := notify.NewDispatcher(store.NewPreferenceStore(), store.NewNotificationStore(), log)
	if cfg.Notify.Email.SMTPHost != "" {
		dispatcher.Register(models.ChannelEmail, notify.NewEmailSender(notify.EmailConfig{
			Host:     cfg.Notify.Email.SMTPHost,
			Port:     cfg.Notify.Email.SMTPPort,
			From:     cfg.Notify.Email.From,
			Password: cfg.Notify.Email.Password,
		}))
	}
	if cfg.Notify.Slack.Token != "" {
		dispatcher.Register(models.ChannelSystem, notify.NewSlackSender(cfg.Notify.Slack.Token, cfg.Notify.Slack.Channel))
	}
	if cfg.Notify.SMS.GatewayURL != "" {
		dispatcher.Register(models.ChannelSMS, notify.NewSMSSender(cfg.Notify.SMS.GatewayURL, cfg.Notify.SMS.APIKey))
	}

	eng := engine.New(engine.Config{
		AlertTTL:  time.Duration(cfg.Alert.TTLHours) * time.Hour,
		Retention: time.Duration(cfg.Alert.RetentionDays) * 24 * time.Hour,
	}, dispatcher, log)

	arc, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		log.Fatalf("Failed to open alert archive: %v", err)
	}
	defer arc.Close()
	eng.SetArchiver(arc)

	sweeper := sweep.New(eng, time.Duration(cfg.Alert.SweepMinutes)*time.Minute, log)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	if cfg.Report.Enabled && len(cfg.Report.Recipients) > 0 && cfg.Notify.Email.SMTPHost != "" {
		dialer := gomail.NewDialer(cfg.Notify.Email.SMTPHost, cfg.Notify.Email.SMTPPort,
			cfg.Notify.Email.From, cfg.Notify.Email.Password)
		digest := report.NewScheduler(
			report.NewGenerator(eng, cfg.Notify.Email.From),
			dialer, cfg.Report.Recipients, report.DefaultInterval, log)
		digest.Start()
		defer digest.Stop()
		log.WithField("recipients", len(cfg.Report.Recipients)).Info("daily alert digest enabled")
	}

	server := api.NewServer(eng, dispatcher, arc, log)
	log.WithField("port", cfg.Server.Port).Info("starting ForestGuard API server")
	if err := server.Start(cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
