// Package config loads typed configuration from environment variables.
//
// Load wraps github.com/caarlos0/env/v11 for struct tags and
// github.com/joho/godotenv for dotenv files. A .env file in the working
// directory is read once if present; WithEnvFiles adds more. Parsed values are
// cached per type and prefix, so repeated Load calls are cheap.
//
//	var cfg featurekit.Config
//	if err := config.Load(&cfg, config.WithPrefix("FEATUREKIT_")); err != nil {
//	    return err
//	}
//
// Tests that change the environment call ResetCache or pass WithoutCache.
package config
