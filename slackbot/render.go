package slackbot

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"github.com/onnwee/teambot/bot"
)

// mrkdwn converts **bold** markup to Slack's *bold*.
func mrkdwn(s string) string { return strings.ReplaceAll(s, "**", "*") }

// Attachment renders the rich part of msg as a legacy attachment, which keeps
// the accent color bar that blocks lack.
func Attachment(msg bot.Message) slack.Attachment {
	a := slack.Attachment{
		Color:      msg.Color.Hex(),
		Title:      msg.Title,
		Text:       mrkdwn(msg.Description),
		Footer:     msg.Footer,
		Fallback:   msg.Plain(),
		MarkdownIn: []string{"text", "fields"},
	}
	for _, f := range msg.Fields {
		a.Fields = append(a.Fields, slack.AttachmentField{
			Title: f.Name,
			Value: mrkdwn(f.Value),
			Short: f.Inline,
		})
	}
	if !msg.Timestamp.IsZero() {
		a.Ts = json.Number(strconv.FormatInt(msg.Timestamp.Unix(), 10))
	}
	return a
}

// msgOptions renders msg for chat.postMessage and chat.postEphemeral.
func msgOptions(msg bot.Message) []slack.MsgOption {
	var opts []slack.MsgOption
	text := mrkdwn(msg.Text)
	if text == "" && msg.Rich() {
		// notifications and screen readers use the top-level text
		text = msg.Title
	}
	if !msg.Rich() && msg.Color != bot.ColorNone {
		// colored notices travel as a bare attachment to keep the accent bar
		return append(opts, slack.MsgOptionText("", false), slack.MsgOptionAttachments(slack.Attachment{
			Color:      msg.Color.Hex(),
			Text:       text,
			Fallback:   msg.Plain(),
			MarkdownIn: []string{"text"},
		}))
	}
	opts = append(opts, slack.MsgOptionText(text, false))
	if msg.Rich() {
		opts = append(opts, slack.MsgOptionAttachments(Attachment(msg)))
	}
	return opts
}

// uploadComment is the initial comment posted with an uploaded file.
func uploadComment(msg bot.Message) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{msg.Text, msg.Title, msg.Description} {
		if s = strings.TrimSpace(mrkdwn(s)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
