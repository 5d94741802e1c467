package infrastructure

import (
	"fmt"
	"os/exec"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService handles sending notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	switch n.config.Method {
	case "osascript":
		return n.sendOSAScript(title, message)
	case "notify-send":
		return n.sendNotifySend(title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

// sendOSAScript sends notification using macOS osascript
func (n *NotificationService) sendOSAScript(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	cmd := exec.Command("osascript", "-e", script)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "osascript"),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))

	return nil
}

// sendNotifySend sends notification using Linux notify-send
func (n *NotificationService) sendNotifySend(title, message string) error {
	cmd := exec.Command("notify-send", title, message)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "notify-send"),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))

	return nil
}

// NotifyRunQueued sends notification when a run is queued
func (n *NotificationService) NotifyRunQueued(run *domain.FetchRun) {
	title := "Fetch Queued"
	message := fmt.Sprintf("Added to queue: %s", truncateString(run.URL, 40))
	n.Send(title, message)
}

// NotifyRunStarted sends notification when a run starts
func (n *NotificationService) NotifyRunStarted(run *domain.FetchRun) {
	title := "Fetch Started"
	message := fmt.Sprintf("Processing: %s (%s)", truncateString(run.URL, 40), run.Convention)
	n.Send(title, message)
}

// NotifyRunCompleted sends notification when a run completes
func (n *NotificationService) NotifyRunCompleted(run *domain.FetchRun) {
	title := "Fetch Completed"
	target := run.ExtractionDir
	if target == "" {
		target = run.ResolvedWorkDir
	}
	message := fmt.Sprintf("Ready: %s", truncateString(target, 60))
	n.Send(title, message)
}

// NotifyRunFailed sends notification when a run fails
func (n *NotificationService) NotifyRunFailed(run *domain.FetchRun, err error) {
	title := "Fetch Failed"
	message := fmt.Sprintf("Failed: %s: %s", truncateString(run.URL, 40), truncateString(err.Error(), 60))
	n.Send(title, message)
}

// NotifyQueueEmpty sends notification when queue is empty
func (n *NotificationService) NotifyQueueEmpty() {
	title := "Queue Empty"
	message := "All fetch runs completed"
	n.Send(title, message)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

