//go:build !cgo && !windows && !darwin

package player

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lyrebird/internal/shared"
)

// AudioAvailable indicates whether this build can drive the sound card.
// Linux audio output needs cgo for ALSA.
const AudioAvailable = false

// BeepOpener is a stand-in that fails every open when audio output is unavailable.
type BeepOpener struct{}

// NewBeepOpener returns an opener that reports audio as unavailable.
func NewBeepOpener(*http.Client, *log.Logger) *BeepOpener {
	return &BeepOpener{}
}

func (o *BeepOpener) Open(context.Context, string, func()) (Decoder, error) {
	return nil, fmt.Errorf("%w: audio unavailable in this build", shared.ErrPlayback)
}
