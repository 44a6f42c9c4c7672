// Package config loads sealpost settings from the environment.
//
// An optional .env file in the working directory is read first (existing
// environment variables win), then variables are parsed into Config with
// caarlos0/env. All variables use the SEALPOST_ prefix.
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	secrets, err := cfg.ResolveSecrets(log)
//
// Missing secrets are replaced with throwaway random values outside of
// production, with a warning. In production they are an error.
package config
