package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lyrebird/internal/models"
)

// Share prints a link that makes a running player resolve and play the described track.
func (r *Runner) Share(ctx context.Context, cmd *cli.Command) error {
	stub, err := r.stub(cmd)
	if err != nil {
		return err
	}
	br, err := r.bitrate(cmd)
	if err != nil {
		return err
	}

	origin := cmd.String("origin")
	if origin == "" {
		origin = "http://" + r.config.Server.Addr()
	}

	text := models.ShareURL(origin, stub, br, stub.Source)
	if cmd.Bool("embed") {
		text = models.EmbedSnippet(text)
	}

	r.writePlain("%s\n", text)

	if cmd.Bool("copy") {
		if err := r.copy(text); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		r.logger.Info("copied to clipboard")
	}
	return nil
}
