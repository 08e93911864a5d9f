// Package slackapi adapts the relay's platform port to Slack.
package slackapi

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/config"
	"github.com/relaydesk/ticket-relay/internal/platform"
)

// Client implements platform.Platform over the Slack Web API.
type Client struct {
	api    *slack.Client
	logger *zap.Logger
}

// New validates credentials and builds the Web API client.
func New(cfg config.SlackConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if !strings.HasPrefix(cfg.BotToken, "xoxb-") {
		return nil, fmt.Errorf("bot token must start with xoxb-")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("app token is required for Socket Mode")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, fmt.Errorf("app token must start with xapp-")
	}

	api := slack.New(
		cfg.BotToken,
		slack.OptionDebug(cfg.Debug),
		slack.OptionAppLevelToken(cfg.AppToken),
	)
	return &Client{api: api, logger: logger.With(zap.String("component", "slack"))}, nil
}

// API exposes the underlying client for the socket mode listener.
func (c *Client) API() *slack.Client {
	return c.api
}

func (c *Client) PostMessage(ctx context.Context, msg platform.Message) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, msg.Channel, messageOptions(msg)...)
	if err != nil {
		return "", fmt.Errorf("post message to %s: %w", msg.Channel, err)
	}
	return ts, nil
}

func (c *Client) PostEphemeral(ctx context.Context, msg platform.Ephemeral) error {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if msg.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadTS))
	}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(renderBlocks(msg.Blocks)...))
	}
	if _, err := c.api.PostEphemeralContext(ctx, msg.Channel, msg.UserID, opts...); err != nil {
		return fmt.Errorf("post ephemeral to %s: %w", msg.UserID, err)
	}
	return nil
}

func (c *Client) AddReaction(ctx context.Context, channel, ts, name string) error {
	err := c.api.AddReactionContext(ctx, name, slack.NewRefToMessage(channel, ts))
	if err != nil && !isSlackError(err, "already_reacted") {
		return fmt.Errorf("add reaction %s: %w", name, err)
	}
	return nil
}

func (c *Client) RemoveReaction(ctx context.Context, channel, ts, name string) error {
	err := c.api.RemoveReactionContext(ctx, name, slack.NewRefToMessage(channel, ts))
	if err != nil && !isSlackError(err, "no_reaction") {
		return fmt.Errorf("remove reaction %s: %w", name, err)
	}
	return nil
}

func (c *Client) UpdateMessage(ctx context.Context, channel, ts string, msg platform.Message) error {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(renderBlocks(msg.Blocks)...))
	}
	if _, _, _, err := c.api.UpdateMessageContext(ctx, channel, ts, opts...); err != nil {
		return fmt.Errorf("update message %s: %w", ts, err)
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, channel, ts string) error {
	if _, _, err := c.api.DeleteMessageContext(ctx, channel, ts); err != nil {
		return fmt.Errorf("delete message %s: %w", ts, err)
	}
	return nil
}

func (c *Client) UserProfile(ctx context.Context, userID string) (platform.Profile, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return platform.Profile{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	name := user.Profile.DisplayName
	if name == "" {
		name = user.Profile.RealName
	}
	if name == "" {
		name = user.Name
	}
	return platform.Profile{UserID: userID, DisplayName: name, AvatarURL: user.Profile.Image48}, nil
}

func (c *Client) Permalink(ctx context.Context, channel, ts string) (string, error) {
	link, err := c.api.GetPermalinkContext(ctx, &slack.PermalinkParameters{Channel: channel, Ts: ts})
	if err != nil {
		return "", fmt.Errorf("permalink %s/%s: %w", channel, ts, err)
	}
	return link, nil
}

func (c *Client) DownloadFile(ctx context.Context, url string, w io.Writer) error {
	if err := c.api.GetFileContext(ctx, url, w); err != nil {
		return fmt.Errorf("download file: %w", err)
	}
	return nil
}

func (c *Client) UploadFile(ctx context.Context, up platform.Upload) (platform.UploadResult, error) {
	summary, err := c.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:         up.Channel,
		ThreadTimestamp: up.ThreadTS,
		File:            up.Path,
		Filename:        up.Filename,
		Title:           up.Filename,
		FileSize:        int(up.Size),
	})
	if err != nil {
		return platform.UploadResult{}, fmt.Errorf("upload %s: %w", up.Filename, err)
	}
	return platform.UploadResult{FileID: summary.ID}, nil
}

func (c *Client) FileShareTS(ctx context.Context, fileID, channel string) (string, error) {
	file, _, _, err := c.api.GetFileInfoContext(ctx, fileID, 0, 0)
	if err != nil {
		return "", fmt.Errorf("file info %s: %w", fileID, err)
	}
	for _, shares := range []map[string][]slack.ShareFileInfo{file.Shares.Public, file.Shares.Private} {
		if infos := shares[channel]; len(infos) > 0 {
			return infos[0].Ts, nil
		}
	}
	return "", nil
}

func (c *Client) OpenModal(ctx context.Context, triggerID string, modal platform.Modal) error {
	if _, err := c.api.OpenViewContext(ctx, triggerID, renderModal(modal)); err != nil {
		return fmt.Errorf("open modal %s: %w", modal.CallbackID, err)
	}
	return nil
}

func messageOptions(msg platform.Message) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if msg.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadTS))
	}
	if msg.Username != "" {
		opts = append(opts, slack.MsgOptionUsername(msg.Username))
	}
	if msg.IconURL != "" {
		opts = append(opts, slack.MsgOptionIconURL(msg.IconURL))
	}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(renderBlocks(msg.Blocks)...))
	}
	if msg.DisableUnfurl {
		opts = append(opts, slack.MsgOptionDisableLinkUnfurl(), slack.MsgOptionDisableMediaUnfurl())
	}
	return opts
}

func isSlackError(err error, code string) bool {
	return err != nil && strings.Contains(err.Error(), code)
}

var _ platform.Platform = (*Client)(nil)
