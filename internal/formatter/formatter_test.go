package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/lyrebird/internal/lyric"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
	th "github.com/desertthunder/lyrebird/internal/testing"
)

func testExport() *LibraryExport {
	return &LibraryExport{
		Title: "Saved",
		Tracks: []models.TrackStub{
			{
				ID:      "s1",
				Name:    "Blue Bird",
				Artist:  "Ikimono-gakari",
				Album:   "Single",
				Source:  models.Netease,
				TrackID: "100",
				Bitrate: models.Bitrate320,
			},
			{
				ID:      "s2",
				Name:    "Haruka",
				Artist:  "YOASOBI",
				Source:  models.Kuwo,
				Keyword: "haruka yoasobi",
			},
			{
				ID:      "s3",
				Name:    "Idol",
				Source:  models.Netease,
				Bitrate: models.Bitrate999,
			},
		},
	}
}

func TestFormatTime(t *testing.T) {
	tc := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{59.9, "00:59"},
		{61, "01:01"},
		{3600, "60:00"},
		{-1, "00:00"},
		{math.NaN(), "00:00"},
		{math.Inf(1), "00:00"},
	}
	for _, tt := range tc {
		if got := FormatTime(tt.in); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("NewLibraryExport", func(t *testing.T) {
		stubs := []*models.PersistedStub{
			models.NewPersistedStub(1, models.TrackStub{Name: "a", Source: models.Joox}),
			models.NewPersistedStub(2, models.TrackStub{Name: "b", Source: models.Netease}),
			models.NewPersistedStub(3, models.TrackStub{Name: "c", Source: models.Joox}),
		}
		export := NewLibraryExport("Saved", stubs)
		if len(export.Tracks) != 3 || export.Tracks[2].Name != "c" {
			t.Errorf("expected tracks in stored order, got %+v", export.Tracks)
		}
		if src := export.Sources(); len(src) != 2 || src[0] != models.Joox || src[1] != models.Netease {
			t.Errorf("expected distinct sources in first-seen order, got %v", src)
		}
		if export.ExportedAt.IsZero() {
			t.Error("expected export time to be set")
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Name,Artist,Album,Source,TrackID,Bitrate,Keyword") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "s1,Blue Bird,Ikimono-gakari,Single,netease,100,320,") {
			t.Errorf("CSV missing first record, got: %s", output)
		}
		if !strings.Contains(output, "s2,Haruka,YOASOBI,,kuwo,,,haruka yoasobi") {
			t.Errorf("CSV should leave unknown bitrate empty, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testExport(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# Saved",
				"**Tracks**: 3",
				"**Sources**: NetEase, Kuwo",
				"## Tracks",
				"1. Blue Bird - Ikimono-gakari (Single) [NetEase 320kbps]",
				"2. Haruka - YOASOBI [Kuwo]",
				"3. Idol [NetEase hi-res]",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got: %s", want, output)
				}
			}
			if strings.Contains(output, "![Cover]") {
				t.Error("Markdown should not reference a cover")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testExport(), "cover.png")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Cover](cover.png)") {
				t.Errorf("Markdown missing cover image reference")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Library: Saved\nTracks: 3\n\n") {
			t.Errorf("Text missing header, got: %s", output)
		}
		if !strings.Contains(output, "1. Blue Bird - Ikimono-gakari\n") || !strings.Contains(output, "3. Idol\n") {
			t.Errorf("Text missing tracks, got: %s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testExport())
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var meta map[string]any
		if err := json.Unmarshal(data, &meta); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if meta["title"] != "Saved" || meta["count"] != float64(3) {
			t.Errorf("unexpected metadata %v", meta)
		}
		if _, ok := meta["Tracks"]; ok {
			t.Error("metadata should not include tracks")
		}
	})

	t.Run("ExportToLRC", func(t *testing.T) {
		lines := []lyric.Line{
			{Time: 0, Text: "intro"},
			{Time: 12.5, Text: "first"},
			{Time: 61.04, Text: "second"},
			{Time: math.Inf(1), Text: "credits"},
		}

		got := string(ExportToLRC(lines))
		want := "[00:00.00]intro\n[00:12.50]first\n[01:01.04]second\ncredits\n"
		if got != want {
			t.Errorf("ExportToLRC = %q, want %q", got, want)
		}

		parsed := lyric.Parse(got)
		if len(parsed) != len(lines) {
			t.Fatalf("expected %d lines after reparse, got %+v", len(lines), parsed)
		}
		for i := range lines {
			if parsed[i].Text != lines[i].Text {
				t.Errorf("line %d: expected %q, got %q", i, lines[i].Text, parsed[i].Text)
			}
			if lines[i].Timed() && math.Abs(parsed[i].Time-lines[i].Time) > 0.001 {
				t.Errorf("line %d: expected time %v, got %v", i, lines[i].Time, parsed[i].Time)
			}
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		_, _, err := DownloadImage(context.Background(), nil, "")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	t.Run("Success", func(t *testing.T) {
		data, mime, err := DownloadImage(context.Background(), srv.Client(), srv.URL+"/cover.png")
		if err != nil {
			t.Fatalf("DownloadImage failed: %v", err)
		}
		if string(data) != "png-bytes" || mime != "image/png" {
			t.Errorf("unexpected download %q %q", data, mime)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, _, err := DownloadImage(context.Background(), srv.Client(), srv.URL+"/missing")
		if !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})
}

func TestImageExtension(t *testing.T) {
	tc := map[string]string{
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
		"image/jpeg": ".jpg",
		"":           ".jpg",
	}
	for mime, want := range tc {
		if got := ImageExtension(mime); got != want {
			t.Errorf("ImageExtension(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			t.Chdir(t.TempDir())

			result, err := WriteCSVExport(testExport(), "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}

			if result.TracksFile != "library_tracks.csv" {
				t.Errorf("Expected tracks file 'library_tracks.csv', got '%s'", result.TracksFile)
			}
			if result.MetadataFile != "library_metadata.json" {
				t.Errorf("Expected metadata file 'library_metadata.json', got '%s'", result.MetadataFile)
			}

			th.AssertFileExists(t, result.TracksFile)
			th.AssertFileExists(t, result.MetadataFile)

			if !strings.Contains(th.MustReadFile(t, result.TracksFile), "Blue Bird") {
				t.Errorf("CSV missing track data")
			}
			if !strings.Contains(th.MustReadFile(t, result.MetadataFile), `"title": "Saved"`) {
				t.Errorf("Metadata JSON missing expected fields")
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "custom_export")

			result, err := WriteCSVExport(testExport(), base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}

			th.AssertFileExists(t, base+"_tracks.csv")
			th.AssertFileExists(t, base+"_metadata.json")
			if result.TracksFile != base+"_tracks.csv" {
				t.Errorf("unexpected tracks file %q", result.TracksFile)
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithDefaultDirectory", func(t *testing.T) {
			t.Chdir(t.TempDir())

			result, err := WriteMarkdownExport(testExport(), "", nil, "")
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}

			if result.Directory != "library" {
				t.Errorf("Expected directory 'library', got '%s'", result.Directory)
			}
			th.AssertDirExists(t, result.Directory)

			readmePath := filepath.Join(result.Directory, "README.md")
			th.AssertFileExists(t, readmePath)
			if !strings.Contains(th.MustReadFile(t, readmePath), "# Saved") {
				t.Errorf("Markdown missing title")
			}
			if result.CoverImage != "" || len(result.Files) != 1 {
				t.Errorf("Expected no cover image, got %+v", result)
			}
		})

		t.Run("WithCover", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")

			result, err := WriteMarkdownExport(testExport(), dir, []byte("png"), "image/png")
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}

			if result.CoverImage != filepath.Join(dir, "cover.png") {
				t.Errorf("unexpected cover path %q", result.CoverImage)
			}
			if th.MustReadFile(t, result.CoverImage) != "png" {
				t.Error("cover bytes not written")
			}
			if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.png)") {
				t.Error("README should reference the cover")
			}
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "saved.txt")

		got, err := WriteTextExport(testExport(), path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
		if !strings.Contains(th.MustReadFile(t, path), "2. Haruka - YOASOBI") {
			t.Error("text export missing tracks")
		}
	})

	t.Run("WriteLRC", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "song.lrc")

		if err := WriteLRC(nil, path); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty lyrics, got %v", err)
		}
		if err := WriteLRC([]lyric.Line{{Time: 1, Text: "hi"}}, path); err != nil {
			t.Fatalf("WriteLRC failed: %v", err)
		}
		if got := th.MustReadFile(t, path); got != "[00:01.00]hi\n" {
			t.Errorf("unexpected LRC %q", got)
		}
	})
}
