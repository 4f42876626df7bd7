package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrNoSenders is returned by Notify when every configured sender failed.
var ErrNoSenders = errors.New("notify: no sender delivered the message") //nolint:gochecknoglobals // sentinel error

// Sender delivers a staff-facing message on one channel.
type Sender interface {
	Send(ctx context.Context, text string) error
	Name() string
}

// Notifier tries its senders in order until one succeeds. With no senders
// configured the message is only logged.
type Notifier struct {
	senders []Sender
}

func New(senders ...Sender) *Notifier {
	return &Notifier{senders: senders}
}

func (n *Notifier) Notify(ctx context.Context, message string) error {
	if len(n.senders) == 0 {
		log.Info().Str("message", message).Msg("notify: no sender configured")
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		err := s.Send(ctx, message)
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Str("sender", s.Name()).Msg("notify: sender failed")
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}

	return fmt.Errorf("notify.Notifier.Notify: %w", errors.Join(append([]error{ErrNoSenders}, errs...)...))
}
