package player

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/desertthunder/lyrebird/internal/shared"
)

// MaxSourceBytes caps how much audio is buffered for one track.
const MaxSourceBytes = 512 << 20

var contentTypeExt = map[string]string{
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/wave":   ".wav",
	"audio/ogg":    ".ogg",
	"audio/vorbis": ".ogg",
}

// readSource loads the whole audio resource at src, an http(s) URL or a local path, and reports the
// file extension used to pick a decoder.
func readSource(ctx context.Context, client *http.Client, src string) ([]byte, string, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		path := strings.TrimPrefix(src, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		if len(data) > MaxSourceBytes {
			return nil, "", fmt.Errorf("%w: %s is larger than %d bytes", shared.ErrInvalidInput, path, MaxSourceBytes)
		}
		return data, strings.ToLower(filepath.Ext(path)), nil
	}

	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: audio request returned %d", shared.ErrNetwork, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSourceBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	if len(data) > MaxSourceBytes {
		return nil, "", fmt.Errorf("%w: audio is larger than %d bytes", shared.ErrInvalidInput, MaxSourceBytes)
	}

	return data, extension(src, resp.Header.Get("Content-Type")), nil
}

// extension prefers the URL path's extension, then the content type, then ".mp3".
func extension(src, contentType string) string {
	if u, err := url.Parse(src); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" {
			return ext
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := contentTypeExt[mt]; ok {
			return ext
		}
	}
	return ".mp3"
}
