// Package config loads hollowfoot configuration.
//
// Configuration comes from a YAML file, an optional .env file and the
// process environment, in that order of increasing precedence. Variables
// prefixed with HOLLOWFOOT_ map onto nested keys, so HOLLOWFOOT_ENGINE_EAGER
// sets engine.eager.
//
//	var cfg config.Config
//	if err := config.LoadConfig("hollowfoot", &cfg); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
