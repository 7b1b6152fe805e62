package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/onnwee/teambot/teams"
	"github.com/onnwee/teambot/telemetry"
)

// ErrTeamsUsage is returned by ParseTeamsArgs for malformed input.
var ErrTeamsUsage = errors.New("expected <num_teams> <num_people> <comma,separated,names>")

// TeamsArgs are the parsed arguments of the teams command.
type TeamsArgs struct {
	NumTeams  int
	NumPeople int
	People    string
}

// ParseTeamsArgs splits "3 8 Alice, Bob Smith, ..." into two integers and the
// remaining people list, which may itself contain spaces.
func ParseTeamsArgs(text string) (TeamsArgs, error) {
	first, rest := nextToken(text)
	second, people := nextToken(rest)
	if first == "" || second == "" || strings.TrimSpace(people) == "" {
		return TeamsArgs{}, ErrTeamsUsage
	}
	numTeams, err := strconv.Atoi(first)
	if err != nil {
		return TeamsArgs{}, fmt.Errorf("%w: num_teams %q is not a number", ErrTeamsUsage, first)
	}
	numPeople, err := strconv.Atoi(second)
	if err != nil {
		return TeamsArgs{}, fmt.Errorf("%w: num_people %q is not a number", ErrTeamsUsage, second)
	}
	return TeamsArgs{NumTeams: numTeams, NumPeople: numPeople, People: strings.TrimSpace(people)}, nil
}

func nextToken(s string) (tok, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

func (b *Bot) handleTeams(ctx context.Context, req Request, r Responder) error {
	logger := b.loggerFor(ctx, req)

	args, err := ParseTeamsArgs(req.Args)
	if err != nil {
		return r.Reply(ctx, Failure(fmt.Sprintf("❌ Invalid arguments: %v\nUsage: `%s%s`", err, req.Prefix, "teams <num_teams> <num_people> <people_list>")))
	}
	switch {
	case args.NumTeams <= 0:
		return r.Reply(ctx, Failure("❌ Number of teams must be positive!"))
	case args.NumPeople <= 0:
		return r.Reply(ctx, Failure("❌ Number of people must be positive!"))
	case args.NumTeams > b.opts.MaxTeams:
		return r.Reply(ctx, Failure(fmt.Sprintf("❌ Maximum %d teams allowed!", b.opts.MaxTeams)))
	}

	people, err := teams.Normalize(args.People)
	if err != nil {
		return r.Reply(ctx, Failure("❌ Invalid people list: "+err.Error()))
	}

	if len(people) != args.NumPeople {
		logger.Info("people count mismatch", slog.Int("declared", args.NumPeople), slog.Int("provided", len(people)))
		if err := r.Reply(ctx, MismatchMessage(args.NumPeople, len(people))); err != nil {
			return err
		}
	}

	res, err := teams.Partition(people, args.NumTeams)
	if err != nil {
		return r.Reply(ctx, Failure("❌ Cannot generate teams: "+err.Error()))
	}
	telemetry.Inc(telemetry.TeamsGenerated)
	telemetry.Observe(telemetry.TeamPeople, float64(res.TotalPeople))

	if err := r.Reply(ctx, TeamsMessage(res, req.UserName, time.Now().UTC())); err != nil {
		return err
	}
	logger.Info("teams generated", slog.Int("teams", res.NumTeams), slog.Int("people", res.TotalPeople), slog.Int("duplicates", res.Duplicates()))
	return nil
}

// MismatchMessage warns that the declared head count differs from the names given.
func MismatchMessage(declared, provided int) Message {
	return Message{
		Title: "⚠️ People Count Mismatch",
		Description: fmt.Sprintf("You specified %d people but provided %d names.\nProceeding with %d people.",
			declared, provided, provided),
		Color: ColorOrange,
	}
}

// TeamsMessage renders a partition result. Empty teams are omitted.
func TeamsMessage(res *teams.Result, requester string, at time.Time) Message {
	msg := Message{
		Title:     "🎲 Random Teams Generated!",
		Color:     ColorGreen,
		Timestamp: at,
	}
	if requester != "" {
		msg.Footer = "Requested by " + requester
	}
	msg.Fields = append(msg.Fields, Field{
		Name: "📊 Summary",
		Value: fmt.Sprintf("**Total People:** %d\n**Number of Teams:** %d\n**Team Size Range:** %d-%d people",
			res.TotalPeople, res.NumTeams, res.MinTeamSize, res.MaxTeamSize),
	})
	for _, t := range res.Teams {
		if len(t.Members) == 0 {
			continue
		}
		var sb strings.Builder
		for i, m := range t.Members {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString("• ")
			sb.WriteString(m)
		}
		msg.Fields = append(msg.Fields, Field{
			Name:   fmt.Sprintf("👥 %s (%d members)", t.Label, len(t.Members)),
			Value:  sb.String(),
			Inline: true,
		})
	}
	if res.Uneven() {
		msg.Fields = append(msg.Fields, Field{
			Name:  "💡 Note",
			Value: "Teams have different sizes due to uneven distribution of people.",
		})
	}
	if d := res.Duplicates(); d > 0 {
		msg.Fields = append(msg.Fields, Field{
			Name:  "🔁 Duplicates",
			Value: fmt.Sprintf("%d duplicate name(s) were removed.", d),
		})
	}
	return msg
}

func (b *Bot) handleTeamHelp(ctx context.Context, req Request, r Responder) error {
	return r.Reply(ctx, HelpMessage(req.Prefix, b.opts.MaxTeams))
}

// HelpMessage describes the teams command using the transport's command prefix.
func HelpMessage(prefix string, maxTeams int) Message {
	return Message{
		Title:       "🎲 Team Generator Help",
		Description: "Generate random teams from a list of people!",
		Color:       ColorBlue,
		Fields: []Field{
			{Name: "📝 Command Usage", Value: fmt.Sprintf("`%steams <num_teams> <num_people> <people_list>`", prefix)},
			{Name: "📋 Parameters", Value: fmt.Sprintf("• **num_teams**: Number of teams to create (1-%d)\n"+
				"• **num_people**: Total number of people (for validation)\n"+
				"• **people_list**: Comma-separated names", maxTeams)},
			{Name: "💡 Example", Value: fmt.Sprintf("`%steams 2 6 Alice,Bob,Charlie,Diana,Eve,Frank`\n"+
				"This creates 2 teams from 6 people.", prefix)},
			{Name: "📌 Tips", Value: fmt.Sprintf("• Names are automatically cleaned and deduplicated\n"+
				"• Teams are distributed as evenly as possible\n"+
				"• Maximum %d teams and %d characters per name\n"+
				"• Duplicate names will be removed automatically", maxTeams, teams.MaxNameLength)},
		},
		Footer: "Need more help? Contact the bot administrator.",
	}
}
