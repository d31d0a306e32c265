package cover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dhowden/tag"

	"github.com/desertthunder/lyrebird/internal/shared"
)

const (
	// ProbeSize is the number of leading bytes requested to look for an ID3 header.
	ProbeSize = 10 * 1024
	// MaxFullRead caps the body read when no ID3 header is present.
	MaxFullRead = 32 << 20
)

// Extractor pulls embedded cover art out of audio files without downloading the whole file.
type Extractor struct {
	client *http.Client
	store  *Store
	logger *log.Logger
}

// NewExtractor creates an [Extractor] registering handles in store. A nil client uses a 15 second timeout.
func NewExtractor(client *http.Client, store *Store, logger *log.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if store == nil {
		store = NewStore()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Extractor{client: client, store: store, logger: logger}
}

// Store returns the registry holding extracted handles.
func (e *Extractor) Store() *Store {
	return e.store
}

// Extract returns the embedded picture of the audio at src, or nil when there is none or anything fails.
//
// src may be an http(s) URL or a local file path.
func (e *Extractor) Extract(ctx context.Context, src string) *Handle {
	pic, err := e.extract(ctx, src)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			e.logger.Debug("no embedded cover", "src", src, "reason", err)
		} else {
			e.logger.Warn("cover extraction failed", "src", src, "error", err)
		}
		return nil
	}
	return e.store.Register(src, pic)
}

func (e *Extractor) extract(ctx context.Context, src string) (Picture, error) {
	probe, err := e.read(ctx, src, 0, ProbeSize)
	if err != nil {
		return Picture{}, err
	}

	h, ok := ParseHeader(probe)
	if !ok {
		full, err := e.read(ctx, src, 0, MaxFullRead)
		if err != nil {
			return Picture{}, err
		}
		return fromTags(full)
	}

	buf := probe
	if len(buf) < h.End() {
		if buf, err = e.read(ctx, src, 0, h.End()); err != nil {
			return Picture{}, err
		}
	}

	if h.Version == 3 || h.Version == 4 {
		pic, err := FindPicture(buf)
		if err == nil {
			return pic, nil
		}
		e.logger.Debug("ID3 frame scan found nothing", "src", src, "reason", err)
	}
	return fromTags(buf)
}

// fromTags searches buf with the general metadata reader, which understands ID3v2.2, FLAC and MP4 atoms.
func fromTags(buf []byte) (Picture, error) {
	m, err := tag.ReadFrom(bytes.NewReader(buf))
	if err != nil {
		return Picture{}, fmt.Errorf("%w: %v", shared.ErrNotFound, err)
	}

	p := m.Picture()
	if p == nil || len(p.Data) == 0 {
		return Picture{}, fmt.Errorf("%w: no picture in %s metadata", shared.ErrNotFound, m.Format())
	}

	mime := p.MIMEType
	if mime == "" {
		mime = defaultMIME
	}
	return Picture{MIME: normalizeMIME(mime), Description: p.Description, Kind: p.Type, Data: p.Data}, nil
}

// read returns up to n bytes of src starting at off.
func (e *Extractor) read(ctx context.Context, src string, off, n int) ([]byte, error) {
	if isRemote(src) {
		return e.readRange(ctx, src, off, n)
	}
	return readFile(src, off, n)
}

func (e *Extractor) readRange(ctx context.Context, url string, off, n int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+n-1))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		// Server ignored the range; skip to the offset ourselves.
		if _, err := io.CopyN(io.Discard, resp.Body, int64(off)); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
		}
	default:
		return nil, fmt.Errorf("%w: range request returned %d", shared.ErrNetwork, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(body, int64(n)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	return data, nil
}

func readFile(path string, off, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.NewSectionReader(f, int64(off), int64(n)))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
