package main

import (
	"context"
	stderrors "errors"

	"github.com/spf13/cobra"

	"github.com/kbukum/birdkit/httpclient"
	"github.com/kbukum/birdkit/jsonvalue"
	"github.com/kbukum/birdkit/logger"
)

// streamFilter holds the filter predicates settable by flag.
type streamFilter struct {
	Track         []string `url:"track,omitempty,comma"`
	Follow        []string `url:"follow,omitempty,comma"`
	Locations     string   `url:"locations,omitempty"`
	StallWarnings bool     `url:"stall_warnings,omitempty"`
}

// streamParams merges the filter flags with key=value arguments. Arguments
// win on conflict.
func streamParams(filter streamFilter, args []string) (httpclient.Params, error) {
	params, err := httpclient.ParamsFromStruct(filter)
	if err != nil {
		return nil, err
	}
	extra, err := parseParams(args)
	if err != nil {
		return nil, err
	}
	for _, kv := range extra {
		params.Set(kv.Key, kv.Value)
	}
	return params, nil
}

func newStreamCommand(root *rootOptions) *cobra.Command {
	var (
		flags  requestFlags
		filter streamFilter
	)
	cmd := &cobra.Command{
		Use:   "stream <path> [key=value...]",
		Short: "Follow a streaming endpoint, one JSON document per line",
		Long: `Follow a streaming endpoint until the server closes it or the command
is interrupted. Keep-alive lines are skipped and malformed segments are
dropped.`,
		Example: `  birdctl stream statuses/sample.json
  birdctl stream statuses/filter.json track=golang
  birdctl stream statuses/filter.json --track golang,gopher --stall-warnings`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := flags.resolveBase()
			if err != nil {
				return err
			}
			params, err := streamParams(filter, args[1:])
			if err != nil {
				return err
			}
			c, err := root.loadClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(context.WithoutCancel(cmd.Context())) }()

			out := cmd.OutOrStdout()
			var printErr error
			err = c.Stream(cmd.Context(), base, args[0], params, func(doc jsonvalue.Value) {
				if printErr == nil {
					printErr = printDocument(out, doc, flags.pretty)
				}
			})
			if stderrors.Is(err, context.Canceled) {
				logger.WithComponent("birdctl").Debug("stream interrupted")
				return printErr
			}
			if err != nil {
				return err
			}
			return printErr
		},
	}
	flags.register(cmd, "stream")
	cmd.Flags().StringSliceVar(&filter.Track, "track", nil, "phrases to track")
	cmd.Flags().StringSliceVar(&filter.Follow, "follow", nil, "user ids to follow")
	cmd.Flags().StringVar(&filter.Locations, "locations", "", "bounding boxes as comma separated coordinates")
	cmd.Flags().BoolVar(&filter.StallWarnings, "stall-warnings", false, "ask for stall warning messages")
	return cmd
}
