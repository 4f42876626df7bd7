package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"
)

// SlackAPI is the subset of the Slack client used by SlackSender.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackSender posts to a fixed staff channel.
type SlackSender struct {
	api     SlackAPI
	channel string
}

func NewSlackSender(api SlackAPI, channel string) *SlackSender {
	return &SlackSender{api: api, channel: channel}
}

// NewSlackSenderFromToken builds a sender on the real Slack web API.
func NewSlackSenderFromToken(botToken, channel string) *SlackSender {
	return NewSlackSender(slacklib.New(botToken), channel)
}

func (s *SlackSender) Send(ctx context.Context, text string) error {
	_, _, err := s.api.PostMessageContext(ctx, s.channel,
		slacklib.MsgOptionText(text, false),
		slacklib.MsgOptionBlocks(messageBlocks(text)...),
	)
	if err != nil {
		return fmt.Errorf("notify.SlackSender.Send: %w", err)
	}
	return nil
}

func (s *SlackSender) Name() string { return "slack" }

func messageBlocks(text string) []slacklib.Block {
	return []slacklib.Block{
		slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, text, false, false),
			nil,
			nil,
		),
	}
}
