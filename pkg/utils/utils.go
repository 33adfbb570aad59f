package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"mime/multipart"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	ErrNoFile         = errors.New("no file uploaded")
	ErrFileTooLarge   = errors.New("file size exceeds limit")
	ErrNotAnImage     = errors.New("uploaded file is not an image")
	ErrEmptyImage     = errors.New("image has no pixels")
	ErrInvalidMaxSide = errors.New("max side must be positive")
	ErrImageTooLarge  = errors.New("image dimensions exceed limit")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadFile(file *multipart.FileHeader) ([]byte, error)
	MaxFileSize() int64
}

type utils struct {
	maxFileSize int64
}

func New() IUtils {
	maxMB, err := strconv.Atoi(os.Getenv("MAX_UPLOAD_MB"))
	if err != nil || maxMB <= 0 {
		maxMB = 5
	}

	return &utils{
		maxFileSize: int64(maxMB) * 1024 * 1024,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) MaxFileSize() int64 {
	return u.maxFileSize
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ReadFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
}

// MaxImagePixels bounds the decoded size of any image, checked against its
// header before the pixels are allocated.
const MaxImagePixels = 8192 * 8192

// DecodeImage decodes JPEG, PNG, GIF or WebP bytes.
func DecodeImage(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", ErrEmptyImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, "", ErrImageTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if img.Bounds().Empty() {
		return nil, "", ErrEmptyImage
	}
	return img, format, nil
}

// FitWithin returns the size of a uniform rescale of width x height whose
// longer side equals maxSide. Sources smaller than maxSide are scaled up.
// The shorter side is floored.
func FitWithin(width, height, maxSide int) (int, int, float64) {
	if width <= 0 || height <= 0 || maxSide <= 0 {
		return 0, 0, 0
	}

	newWidth, newHeight := maxSide, maxSide
	if width >= height {
		newHeight = height * maxSide / width
	} else {
		newWidth = width * maxSide / height
	}

	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	scale := math.Min(float64(maxSide)/float64(width), float64(maxSide)/float64(height))
	return newWidth, newHeight, scale
}

// ScaleToFit draws src onto a fresh RGBA surface sized by FitWithin.
func ScaleToFit(src image.Image, maxSide int) (*image.RGBA, error) {
	if maxSide <= 0 {
		return nil, ErrInvalidMaxSide
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyImage
	}

	width, height, _ := FitWithin(bounds.Dx(), bounds.Dy(), maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	return dst, nil
}
