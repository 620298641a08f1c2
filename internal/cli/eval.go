package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/featurekit/pkg/flags"
)

// EvalOptions holds the eval command flags.
type EvalOptions struct {
	actor
	Now string
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{}

	cmd := &cobra.Command{
		Use:   "eval <definitions-file> <distinct-id> [flag-key...]",
		Short: "Evaluate flags locally for one actor",
		Long: `Evaluate flags from a definitions file for one distinct id.

Without flag keys every flag is evaluated. Results are printed as JSON; an
"inconclusive" outcome means the remote service would have been asked.`,
		Example: `  flagcheck eval flags.yaml user-1 --person plan=pro
  flagcheck eval flags.json user-1 beta --group company=acme --group-prop company.size=12`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, rootOpts, opts, args[0], args[1], args[2:])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.person, "person", "p", nil, "person property key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.groups, "group", "g", nil, "group membership type=key (repeatable)")
	cmd.Flags().StringArrayVar(&opts.groupProps, "group-prop", nil, "group property type.key=value (repeatable)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "evaluation time for relative date operators (RFC 3339)")

	return cmd
}

func runEval(cmd *cobra.Command, rootOpts *RootOptions, opts *EvalOptions, path, distinctID string, keys []string) error {
	log, err := rootOpts.logger(cmd)
	if err != nil {
		return err
	}

	ectx, err := opts.context(distinctID)
	if err != nil {
		return err
	}

	evalOpts := []flags.EvaluatorOption{flags.WithLogger(log)}
	if opts.Now != "" {
		now, err := time.Parse(time.RFC3339, opts.Now)
		if err != nil {
			return fmt.Errorf("--now: %w", err)
		}
		evalOpts = append(evalOpts, flags.WithNow(func() time.Time { return now }))
	}

	snap, err := loadSnapshot(cmd.Context(), path)
	if err != nil {
		return err
	}
	ev := flags.NewEvaluator(evalOpts...)

	var out []FlagOutput
	if len(keys) == 0 {
		results, _ := ev.EvaluateAll(snap, ectx)
		out = sortedOutputs(results)
	} else {
		for _, key := range keys {
			out = append(out, newFlagOutput(ev.Evaluate(snap, key, ectx)))
		}
	}

	return writeJSON(cmd.OutOrStdout(), out, rootOpts.Pretty)
}
