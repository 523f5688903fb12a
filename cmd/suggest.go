package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spigell/affinity-suggest/internal/suggestion"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptAccept  = "Accept"
	PromptDiscard = "Discard"
	PromptBack    = "back"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Fetch ranked suggestions for a work offer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return suggest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().Int64P("business-user-id", "b", 0, "business user id")
	suggestCmd.Flags().Int64P("work-offer-id", "w", 0, "work offer id")
	suggestCmd.Flags().BoolP("interactive", "i", false, "pick suggestions and accept or discard them after fetching")

	suggestCmd.MarkFlagRequired("business-user-id")
	suggestCmd.MarkFlagRequired("work-offer-id")
}

func suggest(cmd *cobra.Command) error {
	logger, client := setup()

	businessUserID, _ := cmd.Flags().GetInt64("business-user-id")
	workOfferID, _ := cmd.Flags().GetInt64("work-offer-id")

	outcome := client.Fetch(cmd.Context(), businessUserID, workOfferID)
	if !outcome.OK() {
		return printFailure(cmd.OutOrStdout(), outcome.Err)
	}

	result := outcome.Value
	logger.Info("got suggestions",
		zap.String("uuid", result.UUID),
		zap.Int("count", len(result.Data.Suggestions)),
	)

	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	if !interactive || len(result.Data.Suggestions) == 0 {
		return nil
	}

	return decideInteractively(cmd.Context(), cmd.OutOrStdout(), client, logger, businessUserID, workOfferID, result)
}

// decideInteractively lets the operator walk the suggestion list and record
// decisions until they choose back. Decided matches leave the list.
func decideInteractively(ctx context.Context, out io.Writer, client *suggestion.Client, logger *zap.Logger, businessUserID, workOfferID int64, result suggestion.Result) error {
	pending := append([]suggestion.Suggestion(nil), result.Data.Suggestions...)

	for len(pending) > 0 {
		items := make([]string, 0, len(pending)+1)
		for _, s := range pending {
			items = append(items, fmt.Sprintf("#%d match %d (affinity %.2f)", s.Rank, s.MatchUserID, s.Affinity))
		}

		matchPrompt := promptui.Select{
			Label: "Choose a suggestion and press ENTER",
			Items: append(items, PromptBack),
		}

		idx, selected, err := matchPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		chosen := pending[idx]

		actionPrompt := promptui.Select{
			Label: fmt.Sprintf("Match %d", chosen.MatchUserID),
			Items: []string{PromptAccept, PromptDiscard, PromptBack},
		}

		_, actionSelected, err := actionPrompt.Run()
		if err != nil {
			return err
		}

		var action suggestion.Action
		switch actionSelected {
		case PromptAccept:
			action = suggestion.Accept
		case PromptDiscard:
			action = suggestion.Discard
		default:
			continue
		}

		outcome := client.RecordDecision(ctx, suggestion.Decision{
			UUID:           result.UUID,
			BusinessUserID: businessUserID,
			MatchUserID:    chosen.MatchUserID,
			WorkOfferID:    workOfferID,
			Action:         action,
		})
		if !outcome.OK() {
			return printFailure(out, outcome.Err)
		}

		logger.Info("decision recorded",
			zap.Int64("match_user_id", chosen.MatchUserID),
			zap.Stringer("action", action),
		)

		pending = append(pending[:idx], pending[idx+1:]...)
	}

	logger.Info("all suggestions decided", zap.String("uuid", result.UUID))
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFailure writes the classified failure and returns errFailed so the
// process exits non-zero without printing the error twice.
func printFailure(out io.Writer, e *suggestion.Error) error {
	if err := printJSON(out, e); err != nil {
		return errors.Join(errFailed, err)
	}

	return errFailed
}
