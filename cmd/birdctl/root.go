package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/birdkit/client"
	"github.com/kbukum/birdkit/config"
	"github.com/kbukum/birdkit/logger"
	"github.com/kbukum/birdkit/version"
)

const appName = "birdctl"

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"api-url":         "http.api_url",
	"upload-url":      "http.upload_url",
	"stream-url":      "http.stream_url",
	"timeout":         "http.timeout",
	"log-level":       "logging.level",
	"consumer-key":    "credentials.consumer_key",
	"consumer-secret": "credentials.consumer_secret",
	"bearer-token":    "credentials.bearer_token",
	"callback-port":   "callback.port",
}

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "birdctl - signed API requests and OAuth flows",
		Long: `birdctl sends OAuth-signed requests to the API, prints streaming
endpoints one JSON document per line and runs the three-legged and
application-only authorization flows.

Configuration is read from config.yml, .env, the environment and flags.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Path to config file (default: ./config.yml or ~/.config/birdctl/config.yml)")
	pf.StringVar(&opts.envFile, "env-file", "", "Path to .env file")
	pf.String("api-url", "", "REST API base URL")
	pf.String("upload-url", "", "Upload API base URL")
	pf.String("stream-url", "", "Streaming API base URL")
	pf.Duration("timeout", 0, "Idle timeout per request")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("consumer-key", "", "Application consumer key")
	pf.String("consumer-secret", "", "Application consumer secret")
	pf.String("bearer-token", "", "Application-only bearer token")
	pf.Int("callback-port", 0, "Port of the authorization callback listener (0 picks a free port)")

	cmd.AddCommand(
		newGetCommand(opts),
		newPostCommand(opts),
		newStreamCommand(opts),
		newAuthCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// loadClient builds a client from the merged configuration of cmd.
func (o *rootOptions) loadClient(cmd *cobra.Command) (*client.Client, error) {
	loaderOpts := []config.LoaderOption{
		config.WithConfigFile(o.configFile),
		config.WithEnvFile(o.envFile),
	}
	for name, key := range flagKeys {
		loaderOpts = append(loaderOpts, config.WithFlag(key, cmd.Flags().Lookup(name)))
	}

	cfg, err := config.Load(appName, loaderOpts...)
	if err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	logger.Init(cfg.Logging)
	return client.New(cmd.Context(), cfg)
}
