package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts an embed per report to one channel.
type Discord struct {
	session   embedSender
	closer    func() error
	channelID string
}

func NewDiscord(botToken, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &Discord{session: session, closer: session.Close, channelID: channelID}, nil
}

func (d *Discord) ReportCreated(ctx context.Context, ev ReportEvent) error {
	if _, err := d.session.ChannelMessageSendEmbed(d.channelID, reportEmbed(ev), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

func reportEmbed(ev ReportEvent) *discordgo.MessageEmbed {
	color := 0x2ECC71 // green
	verdict := "PASS"
	if !ev.Pass {
		verdict = "FAIL"
		color = 0xF39C12 // orange
		if ev.CriticalIssues > 0 {
			color = 0xE74C3C // red
		}
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Conformity %s: %s", verdict, ev.ScannerName),
		URL:         ev.URL,
		Color:       color,
		Description: fmt.Sprintf("%s / %s", ev.ProjectName, ev.SiteName),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Score", Value: fmt.Sprintf("%.0f/100", ev.Score), Inline: true},
			{Name: "Critical issues", Value: fmt.Sprintf("%d", ev.CriticalIssues), Inline: true},
			{Name: "Estimated cost", Value: fmt.Sprintf("%.0f", ev.EstimatedCost), Inline: true},
		},
		Timestamp: ev.CreatedAt.UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Report " + ev.Reference,
		},
	}
}
