package cmd

import (
	"fmt"

	"github.com/spigell/affinity-suggest/internal/suggestion"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type decisionResponse struct {
	Result bool `json:"result"`
}

func init() {
	rootCmd.AddCommand(
		newDecisionCmd("accept", "Mark a suggested match as interesting", suggestion.Accept),
		newDecisionCmd("discard", "Discard a suggested match", suggestion.Discard),
	)
}

func newDecisionCmd(use, short string, action suggestion.Action) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return decide(cmd, action)
		},
	}

	cmd.Flags().StringP("uuid", "u", "", "correlation id of the suggestion batch")
	cmd.Flags().Int64P("business-user-id", "b", 0, "business user id")
	cmd.Flags().Int64P("match-user-id", "m", 0, "suggested match user id")
	cmd.Flags().Int64P("work-offer-id", "w", 0, "work offer id")

	for _, name := range []string{"uuid", "business-user-id", "match-user-id", "work-offer-id"} {
		cmd.MarkFlagRequired(name)
	}

	return cmd
}

func decide(cmd *cobra.Command, action suggestion.Action) error {
	logger, client := setup()

	uuid, _ := cmd.Flags().GetString("uuid")
	if uuid == "" {
		return fmt.Errorf("uuid must not be empty")
	}

	businessUserID, _ := cmd.Flags().GetInt64("business-user-id")
	matchUserID, _ := cmd.Flags().GetInt64("match-user-id")
	workOfferID, _ := cmd.Flags().GetInt64("work-offer-id")

	outcome := client.RecordDecision(cmd.Context(), suggestion.Decision{
		UUID:           uuid,
		BusinessUserID: businessUserID,
		MatchUserID:    matchUserID,
		WorkOfferID:    workOfferID,
		Action:         action,
	})
	if !outcome.OK() {
		return printFailure(cmd.OutOrStdout(), outcome.Err)
	}

	logger.Info("decision recorded",
		zap.String("uuid", uuid),
		zap.Int64("match_user_id", matchUserID),
		zap.Stringer("action", action),
	)

	return printJSON(cmd.OutOrStdout(), decisionResponse{Result: outcome.Value})
}
