package cli

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/featurekit/pkg/bucket"
)

// HashOutput shows where a distinct id lands for a flag.
type HashOutput struct {
	FlagKey    string  `json:"flag_key"`
	DistinctID string  `json:"distinct_id"`
	Rollout    float64 `json:"rollout"`
	Variant    float64 `json:"variant"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <flag-key> <distinct-id>...",
		Short: "Print rollout and variant bucket values",
		Long: `Print the bucket values in [0, 1) used for rollout percentages and variant
selection. An actor is in a rollout of p percent when rollout < p/100.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := make([]HashOutput, 0, len(args)-1)
			for _, id := range args[1:] {
				out = append(out, HashOutput{
					FlagKey:    args[0],
					DistinctID: id,
					Rollout:    bucket.Hash(args[0], id, bucket.RolloutSalt),
					Variant:    bucket.Hash(args[0], id, bucket.VariantSalt),
				})
			}
			return writeJSON(cmd.OutOrStdout(), out, rootOpts.Pretty)
		},
	}
}
