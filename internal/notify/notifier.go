package notify

import (
	"context"

	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
)

// Notifier delivers messages to the user.
type Notifier interface {
	// RequestPermission asks the host for the right to notify and reports
	// whether it was granted.
	RequestPermission(ctx context.Context) (bool, error)

	// PermissionGranted reports the current grant without prompting.
	PermissionGranted(ctx context.Context) bool

	Deliver(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the process log. Permission follows a
// fixed host policy.
type LogNotifier struct {
	log   logger.Logger
	allow bool
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log logger.Logger, allow bool) *LogNotifier {
	return &LogNotifier{log: log, allow: allow}
}

func (n *LogNotifier) RequestPermission(context.Context) (bool, error) {
	return n.allow, nil
}

func (n *LogNotifier) PermissionGranted(context.Context) bool {
	return n.allow
}

func (n *LogNotifier) Deliver(_ context.Context, msg Message) error {
	n.log.Info(msg.Title,
		logger.String("body", msg.Body),
		logger.String("tag", msg.Tag),
		logger.String("url", msg.Metadata["url"]))
	return nil
}
