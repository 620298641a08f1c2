// Package featurekit is a feature flag client with local evaluation.
//
// Flag definitions are fetched from the remote service (or any flagstore.Fetcher,
// such as a definitions file) and evaluated in process. When the local data is not
// enough to decide a flag, the client asks the remote decide endpoint once and uses
// its answer. Analytics events, including one $feature_flag_called event per actor,
// flag and value, are batched and delivered in the background.
//
// # Usage
//
//	cfg, err := featurekit.LoadConfig()
//	if err != nil {
//		return err
//	}
//
//	client, err := featurekit.New(cfg, featurekit.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	if err := client.Start(ctx); err != nil {
//		return err
//	}
//	defer client.Shutdown(context.Background())
//
//	res, err := client.EvaluateFlag(ctx, "new-checkout", "user-1",
//		featurekit.WithPersonProperties(flags.Properties{"plan": "pro"}),
//		featurekit.WithGroup("company", "acme", nil),
//	)
//	if err != nil {
//		// res.Definitive is false; treat the flag as off or retry
//	}
//
// # Undetermined flags
//
// A FlagResult whose Definitive field is false carries no answer. This happens when
// local evaluation was inconclusive and either remote evaluation is disabled
// (Config.OnlyEvaluateLocally or the OnlyLocally option) or the remote call failed.
// A failed remote call is never reported as a disabled flag.
//
// # Configuration
//
// LoadConfig reads FEATUREKIT_* environment variables, for example
// FEATUREKIT_PROJECT_API_KEY, FEATUREKIT_PERSONAL_API_KEY and
// FEATUREKIT_FEATURE_FLAG_POLL_INTERVAL. Without a personal API key and without
// WithFetcher every flag is evaluated remotely.
package featurekit
