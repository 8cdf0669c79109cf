package splitter

import (
	"context"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/xhad/tidy/internal/types"
)

// Pages render at 2x the 72 DPI base, the quality/speed tradeoff the
// conversion step is tuned for.
const renderDPI = 144

type SplitterConfig struct {
	Converter  types.ChunkConverter
	ImagesDir  string
	KeepImages bool
	OnPage     func(page, total int) // progress callback
	Logger     *log.Logger
}

// Splitter turns a multi-page document into ordered single-page image
// chunks, feeds them one at a time through the conversion runner, and
// recombines the per-chunk text into a single document.
type Splitter struct {
	config SplitterConfig
}

func NewWithConfig(config SplitterConfig) *Splitter {
	if config.ImagesDir == "" {
		config.ImagesDir = "temp/pdf2image"
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	return &Splitter{config: config}
}

// SplitAndConvert converts docPath and returns the combined text path and
// the number of processed pages. PDFs are split page by page; any other
// input is a single chunk handed straight to the converter.
func (s *Splitter) SplitAndConvert(ctx context.Context, docPath, outputDir string) (string, int, error) {
	if _, err := os.Stat(docPath); err != nil {
		return "", 0, fmt.Errorf("input file not found: %s", docPath)
	}

	stem := docStem(docPath)
	docOutputDir := filepath.Join(outputDir, stem)

	if strings.ToLower(filepath.Ext(docPath)) != ".pdf" {
		outPath, err := s.config.Converter.Convert(ctx, docPath, docOutputDir)
		if err != nil {
			return "", 0, err
		}
		return outPath, 1, nil
	}

	imageDir := filepath.Join(s.config.ImagesDir, stem+"_images")
	chunks, err := s.renderPages(docPath, imageDir)
	if err != nil {
		s.cleanupChunks(chunks)
		return "", 0, err
	}
	if len(chunks) == 0 {
		s.cleanupChunks(chunks)
		return "", 0, fmt.Errorf("no pages extracted from %s", docPath)
	}

	if err := os.MkdirAll(docOutputDir, 0o755); err != nil {
		s.cleanupChunks(chunks)
		return "", 0, fmt.Errorf("failed to create output directory: %v", err)
	}

	combined := s.convertChunks(ctx, chunks, filepath.Base(docPath), docOutputDir)

	outPath := filepath.Join(docOutputDir, stem+".md")
	if err := os.WriteFile(outPath, []byte(combined), 0o644); err != nil {
		s.cleanupChunks(chunks)
		return "", 0, fmt.Errorf("failed to save combined output: %v", err)
	}

	if !s.config.KeepImages {
		s.cleanupChunks(chunks)
	}

	return outPath, len(chunks), nil
}

// renderPages rasterizes every page to a PNG chunk named
// <stem>_page_NNNN.png, ordered by page number.
func (s *Splitter) renderPages(docPath, imageDir string) ([]string, error) {
	doc, err := fitz.New(docPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", docPath, err)
	}
	defer doc.Close()

	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %v", err)
	}

	stem := docStem(docPath)
	total := doc.NumPage()
	chunks := make([]string, 0, total)

	for page := 0; page < total; page++ {
		img, err := doc.ImageDPI(page, renderDPI)
		if err != nil {
			return chunks, fmt.Errorf("failed to render page %d: %v", page+1, err)
		}

		chunkPath := filepath.Join(imageDir, fmt.Sprintf("%s_page_%04d.png", stem, page+1))
		f, err := os.Create(chunkPath)
		if err != nil {
			return chunks, fmt.Errorf("failed to create chunk for page %d: %v", page+1, err)
		}

		err = png.Encode(f, img)
		f.Close()
		if err != nil {
			return chunks, fmt.Errorf("failed to encode page %d: %v", page+1, err)
		}

		chunks = append(chunks, chunkPath)
	}

	s.config.Logger.Printf("rendered %d pages from %s", len(chunks), docPath)
	return chunks, nil
}

// convertChunks runs chunks through the converter sequentially. The gate
// model assumes a single heavyweight conversion in flight, so there is no
// concurrency here. A failed chunk contributes a marked placeholder instead
// of failing the document.
func (s *Splitter) convertChunks(ctx context.Context, chunks []string, originalName, docOutputDir string) string {
	contents := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		if s.config.OnPage != nil {
			s.config.OnPage(i+1, len(chunks))
		}

		content, err := s.convertChunk(ctx, chunk, docOutputDir)
		if err != nil {
			s.config.Logger.Printf("failed to process chunk %s: %v", chunk, err)
			content = fmt.Sprintf("*Failed to extract content from this page: %v*\n", err)
		}
		contents = append(contents, content)
	}

	return combine(chunks, contents, originalName)
}

func (s *Splitter) convertChunk(ctx context.Context, chunk, docOutputDir string) (string, error) {
	outPath, err := s.config.Converter.Convert(ctx, chunk, docOutputDir)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("converter output unreadable: %v", err)
	}
	return string(data), nil
}

// combine concatenates per-page content under page headings, prefixed by a
// document title line and the processed page count.
func combine(chunks []string, contents []string, originalName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Document: %s\n\n", originalName)
	fmt.Fprintf(&b, "*Converted and processed %d pages*\n\n", len(contents))
	b.WriteString("---\n\n")

	for i, content := range contents {
		fmt.Fprintf(&b, "## Page %d\n\n", pageNumber(chunks[i], i))
		b.WriteString(content)
		b.WriteString("\n\n---\n\n")
	}

	return b.String()
}

// pageNumber recovers the page ordinal from the chunk filename suffix,
// falling back to the chunk's position.
func pageNumber(chunkPath string, index int) int {
	stem := docStem(chunkPath)
	if i := strings.LastIndex(stem, "_page_"); i >= 0 {
		if n, err := strconv.Atoi(stem[i+len("_page_"):]); err == nil {
			return n
		}
	}
	return index + 1
}

func (s *Splitter) cleanupChunks(chunks []string) {
	if s.config.KeepImages {
		return
	}
	for _, chunk := range chunks {
		if err := os.Remove(chunk); err != nil && !os.IsNotExist(err) {
			s.config.Logger.Printf("failed to delete chunk image %s: %v", chunk, err)
		}
	}
}

func docStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
