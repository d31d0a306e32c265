package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lyrebird/internal/services"
	"github.com/desertthunder/lyrebird/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet sends a raw GET to the catalog endpoint and prints the response body.
//
// Arguments are "key=value" pairs, e.g. types=search source=netease name=bird.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: at least one key=value parameter", shared.ErrMissingArgument)
	}

	params, err := services.ParseQuery(args...)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	r.logger.Info("GET request", "params", params.Encode())

	resp, err := r.api.Get(ctx, params)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrNetwork, resp.StatusCode, string(resp.Body))
	}

	if cmd.Bool("raw") {
		r.output.Write(resp.Body)
		r.output.Write([]byte("\n"))
		return nil
	}

	if cmd.Bool("pretty") {
		return r.writePlain("%s\n", resp.Pretty())
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, false)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
