package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync"

	// decoders for preview thumbnails
	_ "image/gif"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	URLPrefix        = "/previews/"
	defaultMaxSize   = 320
	defaultMaxPixels = 5000 * 5000
	jpegQuality      = 85
)

var (
	ErrEmptyPayload = errors.New("preview: empty payload")
	ErrTooLarge     = errors.New("preview: image too large to decode")
)

// Ref revocable reference to a preview, URL is served by the preview handler
type Ref struct {
	ID  string
	URL string
}

// Item preview content
type Item struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store holds previews until they are revoked
type Store struct {
	maxSize   uint
	maxPixels int64
	items     *sync.Map
}

type Option func(s *Store)

// WithMaxPixels images declaring more pixels are kept raw, never decoded
func WithMaxPixels(maxPixels int64) Option {
	return func(s *Store) {
		if maxPixels > 0 {
			s.maxPixels = maxPixels
		}
	}
}

func NewStore(maxSize int, opts ...Option) *Store {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	s := &Store{
		maxSize:   uint(maxSize),
		maxPixels: defaultMaxPixels,
		items:     new(sync.Map),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create store a preview of data, a thumbnail when data decode as image
func (s *Store) Create(name string, data []byte) (*Ref, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	item := &Item{
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
	if thumb, contentType, err := s.thumbnail(data); err == nil {
		item.Data = thumb
		item.ContentType = contentType
	}
	id := uuid.NewString()
	s.items.Store(id, item)
	return &Ref{ID: id, URL: URLPrefix + id}, nil
}

func (s *Store) Get(id string) (*Item, bool) {
	val, ok := s.items.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*Item), true
}

// Revoke release the preview, revoke an unknown id is a no-op
func (s *Store) Revoke(id string) {
	s.items.Delete(id)
}

func (s *Store) Len() int {
	n := 0
	s.items.Range(func(key, value any) bool {
		n++
		return true
	})
	return n
}

func (s *Store) thumbnail(data []byte) ([]byte, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if int64(cfg.Width)*int64(cfg.Height) > s.maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	thumb := resize.Thumbnail(s.maxSize, s.maxSize, img, resize.Lanczos3)
	buf := new(bytes.Buffer)
	if format == "jpeg" {
		if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
	if err := png.Encode(buf, thumb); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/png", nil
}
