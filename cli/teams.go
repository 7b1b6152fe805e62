package cli

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onnwee/teambot/bot"
	"github.com/onnwee/teambot/teams"
)

// newTeamsCommand creates the "teams" subcommand that partitions people offline.
func newTeamsCommand() *cobra.Command {
	var (
		numTeams int
		seed     uint64
	)
	cmd := &cobra.Command{
		Use:     "teams [flags] <name,name,...>",
		Short:   "Split a comma separated list of people into random teams",
		Example: `  teambot teams --teams 2 "Alice, Bob, Charlie, Diana"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ConfigFromContext(cmd.Context())
			if cfg.MaxTeams > 0 && numTeams > cfg.MaxTeams {
				return fmt.Errorf("maximum %d teams allowed", cfg.MaxTeams)
			}
			people, err := teams.Normalize(strings.Join(args, teams.Separator))
			if err != nil {
				return err
			}

			var res *teams.Result
			if cmd.Flags().Changed("seed") {
				res, err = teams.PartitionRand(rand.New(rand.NewPCG(seed, seed)), people, numTeams) //nolint:gosec // reproducible draws on request
			} else {
				res, err = teams.Partition(people, numTeams)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, line := range bot.TeamsMessage(res, "", time.Now().UTC()).Lines() {
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&numTeams, "teams", "n", 2, "Number of teams")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for a reproducible draw")
	return cmd
}
