// package formatter renders the saved library and lyrics to export formats (CSV, Markdown, plain text, LRC)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/desertthunder/lyrebird/internal/lyric"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// LibraryExport is a titled snapshot of saved stubs.
type LibraryExport struct {
	Title      string             `json:"title"`
	ExportedAt time.Time          `json:"exported_at"`
	Tracks     []models.TrackStub `json:"-"`
}

// NewLibraryExport snapshots persisted stubs in their stored order.
func NewLibraryExport(title string, stubs []*models.PersistedStub) *LibraryExport {
	return &LibraryExport{
		Title:      title,
		ExportedAt: time.Now(),
		Tracks:     lo.Map(stubs, func(p *models.PersistedStub, _ int) models.TrackStub { return p.Stub() }),
	}
}

// Sources lists the distinct catalog sources in the export, in order of first appearance.
func (e *LibraryExport) Sources() []models.Source {
	return lo.Uniq(lo.FilterMap(e.Tracks, func(s models.TrackStub, _ int) (models.Source, bool) {
		return s.Source, s.Source != ""
	}))
}

// FormatTime renders seconds as mm:ss. Negative or non-finite values render as "00:00".
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "00:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// formatTag renders an LRC time tag with centisecond precision.
func formatTag(seconds float64) string {
	cs := int(math.Round(seconds * 100))
	return fmt.Sprintf("[%02d:%02d.%02d]", cs/6000, cs/100%60, cs%100)
}

func bitrateLabel(b models.Bitrate) string {
	if b == 0 {
		return ""
	}
	return strconv.Itoa(int(b))
}

// ExportToCSV converts a LibraryExport to CSV format with columns: ID, Name, Artist, Album, Source, TrackID, Bitrate, Keyword
func ExportToCSV(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "Source", "TrackID", "Bitrate", "Keyword"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Name,
			track.Artist,
			track.Album,
			string(track.Source),
			track.TrackID,
			bitrateLabel(track.Bitrate),
			track.Keyword,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a LibraryExport to Markdown format with optional cover image
func ExportToMarkdown(export *LibraryExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	sources := lo.Map(export.Sources(), func(s models.Source, _ int) string { return s.Label() })
	if len(sources) > 0 {
		fmt.Fprintf(&buf, "**Sources**: %s\n", strings.Join(sources, ", "))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range export.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		tag := track.Source.Label()
		if track.Bitrate != 0 {
			tag += " " + track.Bitrate.String()
		}
		fmt.Fprintf(&buf, "%d. %s%s [%s]\n", i+1, track.Title(), albumPart, tag)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a LibraryExport to plain text format
func ExportToText(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Library: %s\n", export.Title)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track.Title())
	}

	return buf.Bytes(), nil
}

// ExportToLRC renders parsed lines back to LRC. Untimed lines are written without a tag, after the timed ones.
func ExportToLRC(lines []lyric.Line) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		if l.Timed() {
			buf.WriteString(formatTag(l.Time))
		}
		buf.WriteString(l.Text)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// DownloadImage downloads an image from the given URL and returns the raw bytes and content type
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("%w: empty URL provided", shared.ErrInvalidInput)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to download image: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: failed to download image: status %d", shared.ErrNetwork, resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, resp.Header.Get("Content-Type"), nil
}

// ImageExtension picks a file extension for an image MIME type, defaulting to .jpg
func ImageExtension(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// ToMetadataJSON generates a JSON representation of export metadata (without tracks)
func ToMetadataJSON(export *LibraryExport) ([]byte, error) {
	return shared.MarshalJSON(struct {
		*LibraryExport
		Count   int             `json:"count"`
		Sources []models.Source `json:"sources"`
	}{export, len(export.Tracks), export.Sources()}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports the library to CSV format with accompanying metadata JSON file.
//
// Defaults to "library" as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *LibraryExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "library"
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports the library to Markdown format in a dedicated directory.
//
// Directory name defaults to "library". When image is non-empty it is saved next to the README as the cover.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.{ext}
func WriteMarkdownExport(export *LibraryExport, outputDir string, image []byte, mime string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "library"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if len(image) > 0 {
		coverImageFilename = "cover" + ImageExtension(mime)
		coverImagePath := filepath.Join(outputDir, coverImageFilename)
		if err := os.WriteFile(coverImagePath, image, 0644); err != nil {
			return nil, fmt.Errorf("failed to save cover image: %w", err)
		}
		result.CoverImage = coverImagePath
		result.Files = append(result.Files, coverImagePath)
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports the library to plain text format.
//
// Defaults to library_tracks.txt as the filename.
func WriteTextExport(export *LibraryExport, path string) (string, error) {
	if path == "" {
		path = "library_tracks.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteLRC writes lines to path in LRC format.
func WriteLRC(lines []lyric.Line, path string) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: no lyrics to write", shared.ErrInvalidInput)
	}
	if err := os.WriteFile(path, ExportToLRC(lines), 0644); err != nil {
		return fmt.Errorf("failed to write LRC file: %w", err)
	}
	return nil
}
