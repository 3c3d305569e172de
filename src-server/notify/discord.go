package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Discord embeds per message are capped by the API.
const maxEmbedsPerMessage = 10

// DiscordWebhook posts reminders to a channel webhook. No bot token is
// needed, the webhook URL carries its own credentials.
type DiscordWebhook struct {
	session   *discordgo.Session
	webhookID string
	token     string
}

// NewDiscordWebhook takes a URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func NewDiscordWebhook(rawURL string) (*DiscordWebhook, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("NewDiscordWebhook: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[len(parts)-3] != "webhooks" {
		return nil, fmt.Errorf("NewDiscordWebhook: not a webhook url: %s", u.Redacted())
	}

	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("NewDiscordWebhook: %w", err)
	}
	return &DiscordWebhook{
		session:   session,
		webhookID: parts[len(parts)-2],
		token:     parts[len(parts)-1],
	}, nil
}

func (d *DiscordWebhook) Notify(ctx context.Context, reminders []Reminder) (int, error) {
	embeds := Embeds(reminders)
	delivered := 0
	for start := 0; start < len(embeds); start += maxEmbedsPerMessage {
		end := min(start+maxEmbedsPerMessage, len(embeds))
		if _, err := d.session.WebhookExecute(d.webhookID, d.token, false, &discordgo.WebhookParams{
			Username: "brokerdesk",
			Embeds:   embeds[start:end],
		}, discordgo.WithContext(ctx)); err != nil {
			return delivered, fmt.Errorf("(*DiscordWebhook).Notify: %d of %d sent: %w", delivered, len(embeds), err)
		}
		delivered = end
	}
	return delivered, nil
}

func Embeds(reminders []Reminder) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, len(reminders))
	for i, r := range reminders {
		embeds[i] = &discordgo.MessageEmbed{
			Title: r.Title,
			Fields: []*discordgo.MessageEmbedField{
				{
					Name:   "Due",
					Value:  fmt.Sprintf("<t:%d:f>", r.Due.Unix()),
					Inline: true,
				},
			},
			Footer: &discordgo.MessageEmbedFooter{
				Text: r.TaskID,
			},
		}
	}
	return embeds
}
