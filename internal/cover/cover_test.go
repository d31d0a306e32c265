package cover

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 1, 2, 3, 4}

func synchsafeBytes(n int) []byte {
	return []byte{byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f)}
}

func frame(version byte, id string, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString(id)
	if version == 4 {
		b.Write(synchsafeBytes(len(body)))
	} else {
		_ = binary.Write(&b, binary.BigEndian, uint32(len(body)))
	}
	b.Write([]byte{0, 0})
	b.Write(body)
	return b.Bytes()
}

// buildTag assembles an ID3v2 tag with the given frames plus padding.
func buildTag(version byte, padding int, frames ...[]byte) []byte {
	var body bytes.Buffer
	for _, f := range frames {
		body.Write(f)
	}
	body.Write(make([]byte, padding))

	var b bytes.Buffer
	b.WriteString("ID3")
	b.Write([]byte{version, 0, 0})
	b.Write(synchsafeBytes(body.Len()))
	b.Write(body.Bytes())
	return b.Bytes()
}

func apicLatin1(mime, desc string, data []byte) []byte {
	var b bytes.Buffer
	b.WriteByte(0)
	b.WriteString(mime)
	b.WriteByte(0)
	b.WriteByte(3)
	b.WriteString(desc)
	b.WriteByte(0)
	b.Write(data)
	return b.Bytes()
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{})
}

func TestSynchsafe(t *testing.T) {
	tc := []struct {
		in   []byte
		want int
	}{
		{[]byte{0, 0, 2, 1}, 257},
		{[]byte{0, 0, 0, 0x7f}, 127},
		{[]byte{0, 0, 1, 0}, 128},
		{[]byte{0x7f, 0x7f, 0x7f, 0x7f}, 1<<28 - 1},
		{[]byte{0, 0}, 0},
	}
	for _, tt := range tc {
		if got := Synchsafe(tt.in); got != tt.want {
			t.Errorf("Synchsafe(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFindPicture(t *testing.T) {
	t.Run("v2.3 latin1", func(t *testing.T) {
		buf := buildTag(3, 64,
			frame(3, "TIT2", []byte("\x00Title")),
			frame(3, "APIC", apicLatin1("image/png", "front", pngBytes)),
		)

		pic, err := FindPicture(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pic.MIME != "image/png" || pic.Description != "front" || pic.Kind != "Cover (front)" {
			t.Errorf("unexpected picture %+v", pic)
		}
		if !bytes.Equal(pic.Data, pngBytes) {
			t.Errorf("unexpected data %v", pic.Data)
		}
	})

	t.Run("v2.4 synchsafe frame sizes", func(t *testing.T) {
		big := bytes.Repeat([]byte{0xab}, 300)
		buf := buildTag(4, 0, frame(4, "APIC", apicLatin1("image/jpeg", "", big)))

		pic, err := FindPicture(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pic.Data) != 300 {
			t.Errorf("expected 300 bytes, got %d", len(pic.Data))
		}
	})

	t.Run("empty MIME defaults to jpeg", func(t *testing.T) {
		buf := buildTag(3, 0, frame(3, "APIC", apicLatin1("", "", pngBytes)))
		pic, err := FindPicture(buf)
		if err != nil || pic.MIME != "image/jpeg" {
			t.Errorf("expected image/jpeg, got %+v (%v)", pic, err)
		}
	})

	t.Run("UTF-16 description", func(t *testing.T) {
		var body bytes.Buffer
		body.WriteByte(1)
		body.WriteString("image/png\x00")
		body.WriteByte(3)
		body.Write([]byte{0xff, 0xfe, 'c', 0, 'v', 0, 0, 0})
		body.Write(pngBytes)

		pic, err := FindPicture(buildTag(3, 0, frame(3, "APIC", body.Bytes())))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pic.Description != "cv" || pic.MIME != "image/png" {
			t.Errorf("unexpected picture %+v", pic)
		}
		if !bytes.Equal(pic.Data, pngBytes) {
			t.Errorf("unexpected data %v", pic.Data)
		}
	})

	t.Run("UTF-8 description", func(t *testing.T) {
		var body bytes.Buffer
		body.WriteByte(3)
		body.WriteString("image/png\x00")
		body.WriteByte(0)
		body.WriteString("封面\x00")
		body.Write(pngBytes)

		pic, err := FindPicture(buildTag(4, 0, frame(4, "APIC", body.Bytes())))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pic.Description != "封面" || pic.Kind != "Other" {
			t.Errorf("unexpected picture %+v", pic)
		}
	})

	t.Run("stops at padding", func(t *testing.T) {
		buf := buildTag(3, 32, frame(3, "TIT2", []byte("\x00x")))
		if _, err := FindPicture(buf); err == nil {
			t.Error("expected no picture")
		}
	})

	t.Run("overrunning frame", func(t *testing.T) {
		buf := buildTag(3, 0, frame(3, "APIC", apicLatin1("image/png", "", pngBytes)))
		buf = buf[:len(buf)-4]
		if _, err := FindPicture(buf); err == nil {
			t.Error("expected truncated frame to be rejected")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		buf := buildTag(2, 8)
		if _, err := FindPicture(buf); err == nil {
			t.Error("expected error for ID3v2.2")
		}
	})

	t.Run("no signature", func(t *testing.T) {
		if _, err := FindPicture([]byte("RIFF0000WAVE")); err == nil {
			t.Error("expected error without signature")
		}
	})
}

// rangeServer serves content with Range support and records the Range headers it saw.
func rangeServer(t *testing.T, content []byte) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		ranges []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ranges = append(ranges, r.Header.Get("Range"))
		mu.Unlock()
		http.ServeContent(w, r, "track.mp3", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), ranges...)
	}
}

func TestExtractor(t *testing.T) {
	t.Run("small tag in one request", func(t *testing.T) {
		content := append(buildTag(3, 16, frame(3, "APIC", apicLatin1("image/png", "", pngBytes))), bytes.Repeat([]byte{0xff}, 4096)...)
		srv, seen := rangeServer(t, content)

		e := NewExtractor(srv.Client(), NewStore(), quietLogger())
		h := e.Extract(context.Background(), srv.URL+"/a.mp3")
		ranges := seen()
		if h == nil {
			t.Fatal("expected handle")
		}
		if !bytes.Equal(h.Bytes(), pngBytes) || h.MIME() != "image/png" {
			t.Errorf("unexpected handle %s %v", h.MIME(), h.Bytes())
		}
		if len(ranges) != 1 || ranges[0] != "bytes=0-10239" {
			t.Errorf("expected one probe request, got %v", ranges)
		}
		if got, ok := e.Store().Get(h.ID()); !ok || got != h {
			t.Error("expected handle to be registered")
		}
	})

	t.Run("large tag is fetched in a second range", func(t *testing.T) {
		art := bytes.Repeat([]byte{0x42}, 20000)
		tagBytes := buildTag(4, 0, frame(4, "APIC", apicLatin1("image/jpeg", "", art)))
		content := append(tagBytes, bytes.Repeat([]byte{0xff}, 1000)...)
		srv, seen := rangeServer(t, content)

		h := NewExtractor(srv.Client(), nil, quietLogger()).Extract(context.Background(), srv.URL)
		ranges := seen()
		if h == nil {
			t.Fatal("expected handle")
		}
		if h.Len() != len(art) {
			t.Errorf("expected %d bytes, got %d", len(art), h.Len())
		}
		if len(ranges) != 2 || !strings.HasPrefix(ranges[1], "bytes=0-") {
			t.Fatalf("expected a second range request, got %v", ranges)
		}
		if want := "bytes=0-" + strconv.Itoa(len(tagBytes)-1); ranges[1] != want {
			t.Errorf("expected %s, got %s", want, ranges[1])
		}
	})

	t.Run("no signature falls back to full read", func(t *testing.T) {
		srv, seen := rangeServer(t, []byte("not an audio file at all"))

		h := NewExtractor(srv.Client(), nil, quietLogger()).Extract(context.Background(), srv.URL)
		ranges := seen()
		if h != nil {
			t.Error("expected nil handle")
		}
		if len(ranges) != 2 {
			t.Errorf("expected probe plus full read, got %v", ranges)
		}
	})

	t.Run("server ignoring ranges", func(t *testing.T) {
		content := buildTag(3, 0, frame(3, "APIC", apicLatin1("image/png", "", pngBytes)))
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(content)
		}))
		defer srv.Close()

		if h := NewExtractor(srv.Client(), nil, quietLogger()).Extract(context.Background(), srv.URL); h == nil {
			t.Error("expected handle from 200 response")
		}
	})

	t.Run("errors resolve to nil", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		e := NewExtractor(srv.Client(), nil, quietLogger())
		if h := e.Extract(context.Background(), srv.URL); h != nil {
			t.Error("expected nil for 404")
		}
		if h := e.Extract(context.Background(), "http://127.0.0.1:0/x.mp3"); h != nil {
			t.Error("expected nil for unreachable host")
		}
		if e.Store().Live() != 0 {
			t.Error("expected no live handles")
		}
	})

	t.Run("local file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.mp3")
		content := buildTag(3, 0, frame(3, "APIC", apicLatin1("image/png", "", pngBytes)))
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		if h := NewExtractor(nil, nil, quietLogger()).Extract(context.Background(), path); h == nil {
			t.Error("expected handle from local file")
		}
		if h := NewExtractor(nil, nil, quietLogger()).Extract(context.Background(), path+".missing"); h != nil {
			t.Error("expected nil for missing file")
		}
	})
}

func TestHandle(t *testing.T) {
	store := NewStore()
	h := store.Register("src", Picture{MIME: "image/png", Data: []byte{1, 2, 3}})

	if got := h.DataURI(); got != "data:image/png;base64,AQID" {
		t.Errorf("unexpected data URI %s", got)
	}
	if store.Live() != 1 {
		t.Fatalf("expected 1 live handle, got %d", store.Live())
	}

	h.Release()
	h.Release()
	if !h.Released() || h.Bytes() != nil || h.DataURI() != "" {
		t.Error("expected released handle to drop its bytes")
	}
	if store.Live() != 0 {
		t.Errorf("expected no live handles, got %d", store.Live())
	}

	var nilHandle *Handle
	nilHandle.Release()
	if nilHandle.Bytes() != nil {
		t.Error("expected nil bytes from nil handle")
	}
}

func TestSlot(t *testing.T) {
	store := NewStore()
	newHandle := func(src string) *Handle {
		return store.Register(src, Picture{MIME: "image/png", Data: []byte{1}})
	}

	t.Run("stale install is discarded", func(t *testing.T) {
		var slot Slot
		a := slot.Begin("a")
		b := slot.Begin("b")

		hb := newHandle("b")
		if !slot.Install(b, hb) {
			t.Fatal("expected latest ticket to install")
		}

		ha := newHandle("a")
		if slot.Install(a, ha) {
			t.Error("expected stale ticket to be rejected")
		}
		if !ha.Released() {
			t.Error("expected stale handle to be released")
		}

		cur, url := slot.Current()
		if cur != hb || url != "b" {
			t.Errorf("expected b to stay current, got %v %s", cur, url)
		}
	})

	t.Run("rebind moves the installed handle", func(t *testing.T) {
		var slot Slot
		if slot.Rebind("a-320", "a-128") {
			t.Error("expected rebind of an empty slot to fail")
		}

		h := newHandle("a-320")
		slot.Install(slot.Begin("a-320"), h)

		if slot.Rebind("b", "a-128") {
			t.Error("expected rebind from another url to fail")
		}
		if !slot.Rebind("a-320", "a-128") {
			t.Fatal("expected rebind to succeed")
		}
		if cur, url := slot.Current(); cur != h || url != "a-128" || h.Released() {
			t.Errorf("expected same live handle under a-128, got %v %s", cur, url)
		}
	})

	t.Run("replacement releases previous", func(t *testing.T) {
		var slot Slot
		h1 := newHandle("1")
		slot.Install(slot.Begin("1"), h1)
		h2 := newHandle("2")
		slot.Install(slot.Begin("2"), h2)

		if !h1.Released() || h2.Released() {
			t.Error("expected only the previous handle to be released")
		}

		slot.Clear()
		if !h2.Released() {
			t.Error("expected Clear to release current")
		}
		if cur, _ := slot.Current(); cur != nil {
			t.Error("expected empty slot")
		}
	})

	t.Run("clear invalidates pending tickets", func(t *testing.T) {
		var slot Slot
		tk := slot.Begin("x")
		slot.Clear()
		if slot.Install(tk, newHandle("x")) {
			t.Error("expected ticket issued before Clear to be stale")
		}
	})

	t.Run("concurrent installs keep exactly one live", func(t *testing.T) {
		local := NewStore()
		var slot Slot
		var wg sync.WaitGroup
		for i := range 20 {
			tk := slot.Begin(strconv.Itoa(i))
			wg.Add(1)
			go func() {
				defer wg.Done()
				slot.Install(tk, local.Register(tk.URL, Picture{Data: []byte{1}}))
			}()
		}
		wg.Wait()

		if local.Live() > 1 {
			t.Errorf("expected at most one live handle, got %d", local.Live())
		}
	})
}
