package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxBytes int64 = 5 << 20

	VariantOriginal = "original"

	contentTypeJPEG = "image/jpeg"
	jpegQuality     = 82
	bytesPerMB      = 1 << 20

	errorMessageEncodeImage = "uploads: encode variant"
	errorMessageReadUpload  = "uploads: read upload"
)

var (
	ErrUploadTooLarge       = errors.New("file_too_large")
	ErrUnsupportedMediaType = errors.New("unsupported_media_type")
	ErrUndecodableImage     = errors.New("undecodable_image")
)

// Variant is one generated width.
type Variant struct {
	Name  string
	Width int
}

// DefaultVariants are produced by SaveVariants, smallest first.
var DefaultVariants = []Variant{
	{Name: "thumbnail", Width: 150},
	{Name: "small", Width: 400},
	{Name: "medium", Width: 800},
	{Name: "large", Width: 1200},
}

var extensionsByContentType = map[string]string{
	"image/jpeg":   ".jpg",
	"image/png":    ".png",
	"image/gif":    ".gif",
	"image/webp":   ".webp",
	"image/bmp":    ".bmp",
	"image/x-icon": ".ico",
}

// Stored describes one saved upload.
type Stored struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Bytes    int    `json:"-"`
}

// Compression summarises how much smaller the variants are than the original.
type Compression struct {
	OriginalBytes  int `json:"original_bytes"`
	VariantBytes   int `json:"variant_bytes"`
	SavingsPercent int `json:"savings_percent"`
}

// VariantSet is the multi-format result keyed by variant name.
type VariantSet struct {
	Formats     map[string]string `json:"formats"`
	Sizes       map[string]int    `json:"sizes"`
	Compression Compression       `json:"compression"`
}

// Pipeline validates uploads and writes them to a Store.
type Pipeline struct {
	store    Store
	maxBytes int64
	variants []Variant
	newID    func() string
}

func NewPipeline(store Store, maxBytes int64) *Pipeline {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Pipeline{
		store:    store,
		maxBytes: maxBytes,
		variants: DefaultVariants,
		newID:    uuid.NewString,
	}
}

// MaxBytes is the per-file limit.
func (pipeline *Pipeline) MaxBytes() int64 {
	return pipeline.maxBytes
}

// LimitMessage names the size limit for client-facing errors.
func (pipeline *Pipeline) LimitMessage() string {
	if pipeline.maxBytes%bytesPerMB == 0 {
		return fmt.Sprintf("file exceeds %dMB limit", pipeline.maxBytes/bytesPerMB)
	}
	return fmt.Sprintf("file exceeds %d bytes limit", pipeline.maxBytes)
}

// Save stores an image under a fresh <uuid><ext> name.
func (pipeline *Pipeline) Save(ctx context.Context, file io.Reader, declaredType string, originalName string) (Stored, error) {
	data, contentType, err := pipeline.read(file, declaredType)
	if err != nil {
		return Stored{}, err
	}
	filename := pipeline.newID() + extensionFor(contentType, originalName)
	url, putErr := pipeline.store.Put(ctx, filename, contentType, data)
	if putErr != nil {
		return Stored{}, putErr
	}
	return Stored{URL: url, Filename: filename, Bytes: len(data)}, nil
}

// SaveVariants stores the original plus one JPEG per variant width at <variant>/<uuid>.jpg.
// Images narrower than a variant keep their own width.
func (pipeline *Pipeline) SaveVariants(ctx context.Context, file io.Reader, declaredType string, originalName string) (VariantSet, error) {
	data, contentType, err := pipeline.read(file, declaredType)
	if err != nil {
		return VariantSet{}, err
	}
	source, _, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		return VariantSet{}, fmt.Errorf("%w: %v", ErrUndecodableImage, decodeErr)
	}

	identifier := pipeline.newID()
	result := VariantSet{
		Formats: make(map[string]string, len(pipeline.variants)+1),
		Sizes:   make(map[string]int, len(pipeline.variants)+1),
	}

	originalURL, putErr := pipeline.store.Put(ctx, identifier+extensionFor(contentType, originalName), contentType, data)
	if putErr != nil {
		return VariantSet{}, putErr
	}
	result.Formats[VariantOriginal] = originalURL
	result.Sizes[VariantOriginal] = len(data)

	largestBytes := 0
	for _, variant := range pipeline.variants {
		encoded, encodeErr := encodeVariant(source, variant.Width)
		if encodeErr != nil {
			return VariantSet{}, encodeErr
		}
		variantURL, variantErr := pipeline.store.Put(ctx, variant.Name+"/"+identifier+".jpg", contentTypeJPEG, encoded)
		if variantErr != nil {
			return VariantSet{}, variantErr
		}
		result.Formats[variant.Name] = variantURL
		result.Sizes[variant.Name] = len(encoded)
		result.Compression.VariantBytes += len(encoded)
		largestBytes = len(encoded)
	}

	result.Compression.OriginalBytes = len(data)
	result.Compression.SavingsPercent = savingsPercent(len(data), largestBytes)
	return result, nil
}

func (pipeline *Pipeline) read(file io.Reader, declaredType string) ([]byte, string, error) {
	data, readErr := io.ReadAll(io.LimitReader(file, pipeline.maxBytes+1))
	if readErr != nil {
		return nil, "", fmt.Errorf("%s: %w", errorMessageReadUpload, readErr)
	}
	if int64(len(data)) > pipeline.maxBytes {
		return nil, "", ErrUploadTooLarge
	}
	if !isImageType(declaredType) {
		return nil, "", ErrUnsupportedMediaType
	}
	sniffedType := http.DetectContentType(data)
	if !isImageType(sniffedType) {
		return nil, "", ErrUnsupportedMediaType
	}
	return data, sniffedType, nil
}

func isImageType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return strings.HasPrefix(mediaType, "image/")
}

func extensionFor(contentType string, originalName string) string {
	if extension, known := extensionsByContentType[contentType]; known {
		return extension
	}
	extension := strings.ToLower(filepath.Ext(originalName))
	if len(extension) > 1 && len(extension) <= 5 {
		return extension
	}
	return ".img"
}

func encodeVariant(source image.Image, targetWidth int) ([]byte, error) {
	bounds := source.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width > targetWidth {
		height = int(math.Round(float64(height) * float64(targetWidth) / float64(width)))
		width = targetWidth
	}
	if height < 1 {
		height = 1
	}

	destination := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(destination, destination.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(destination, destination.Bounds(), source, bounds, draw.Over, nil)

	var buffer bytes.Buffer
	if err := jpeg.Encode(&buffer, destination, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageEncodeImage, err)
	}
	return buffer.Bytes(), nil
}

func savingsPercent(originalBytes int, largestBytes int) int {
	if originalBytes <= 0 {
		return 0
	}
	percent := int(math.Round(float64(originalBytes-largestBytes) / float64(originalBytes) * 100))
	if percent < 0 {
		return 0
	}
	return percent
}
