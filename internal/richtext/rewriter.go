package richtext

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bilgisen/newsdesk/internal/utils"
)

// ErrUpload is returned when the blob store rejects an image.
var ErrUpload = errors.New("image upload failed")

// legacyMediaType is assumed for data URIs that declare no type and whose
// bytes cannot be sniffed.
const legacyMediaType = "image/png"

// Uploader stores a blob and returns its public URL.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Result describes what an Externalize call did.
type Result struct {
	// Images is the number of inline images that were found.
	Images int
	// Keys lists the storage keys that were written, including those
	// written before a failure.
	Keys []string
}

// Rewriter externalizes inline images of per-locale delta documents.
type Rewriter struct {
	store       Uploader
	category    string
	concurrency int
	log         zerolog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithCategory sets the first segment of generated storage keys.
func WithCategory(category string) Option {
	return func(r *Rewriter) {
		if category != "" {
			r.category = category
		}
	}
}

// WithConcurrency bounds the number of parallel uploads per call.
func WithConcurrency(n int) Option {
	return func(r *Rewriter) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the rewriter's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Rewriter) { r.log = l }
}

// NewRewriter creates a Rewriter that uploads to store.
func NewRewriter(store Uploader, opts ...Option) *Rewriter {
	r := &Rewriter{
		store:       store,
		category:    "news",
		concurrency: 1,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type upload struct {
	locale      string
	op          *ImageInsert
	key         string
	contentType string
	data        []byte
}

// Externalize returns a copy of descriptions in which every inline data-URI
// image has been uploaded and replaced by its URL.
//
// All locales are parsed and every image decoded before the first upload, so
// malformed input fails without side effects. Any upload failure fails the
// whole call; Result.Keys then lists what was already stored.
func (r *Rewriter) Externalize(ctx context.Context, descriptions map[string]string) (map[string]string, Result, error) {
	if descriptions == nil {
		return nil, Result{}, nil
	}

	locales := make([]string, 0, len(descriptions))
	for locale := range descriptions {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	docs := make(map[string]*Document, len(locales))
	var uploads []upload

	for _, locale := range locales {
		doc, err := Parse(descriptions[locale])
		if err != nil {
			return nil, Result{}, fmt.Errorf("locale %q: %w", locale, err)
		}
		docs[locale] = doc

		for i, op := range doc.Ops() {
			img, ok := op.(*ImageInsert)
			if !ok || !img.IsDataURI() {
				continue
			}
			uri, err := ParseDataURI(img.Source)
			if err != nil {
				return nil, Result{}, fmt.Errorf("%w: locale %q operation %d: %w", ErrInvalidDocument, locale, i, err)
			}
			uploads = append(uploads, r.prepare(locale, img, uri))
		}
	}

	res := Result{Images: len(uploads)}
	if len(uploads) > 0 {
		keys, err := r.upload(ctx, uploads)
		res.Keys = keys
		if err != nil {
			return nil, res, err
		}
		r.log.Debug().
			Int("images", len(uploads)).
			Int("locales", len(locales)).
			Msg("inline images externalized")
	}

	out := make(map[string]string, len(descriptions))
	for _, locale := range locales {
		doc := docs[locale]
		if doc.Len() == 0 {
			out[locale] = descriptions[locale]
			continue
		}
		out[locale] = doc.String()
	}
	return out, res, nil
}

func (r *Rewriter) prepare(locale string, img *ImageInsert, uri DataURI) upload {
	detected := mimetype.Detect(uri.Data)

	contentType := uri.MediaType
	if contentType == "" {
		contentType = legacyMediaType
		if !detected.Is("application/octet-stream") {
			contentType = detected.String()
		}
	}

	ext := detected.Extension()
	if declared := mimetype.Lookup(contentType); declared != nil && declared.Extension() != "" {
		ext = declared.Extension()
	}
	if ext == "" {
		ext = ".bin"
	}

	filename := utils.ShortHash(uri.Data, 16) + ext
	return upload{
		locale:      locale,
		op:          img,
		key:         fmt.Sprintf("%s/%s-%s", r.category, uuid.NewString(), filename),
		contentType: contentType,
		data:        uri.Data,
	}
}

// upload stores every image, writing each URL back into its own operation so
// document order does not depend on completion order.
func (r *Rewriter) upload(ctx context.Context, uploads []upload) ([]string, error) {
	urls := make([]string, len(uploads))

	var mu sync.Mutex
	var stored []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range uploads {
		u := uploads[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			url, err := r.store.Put(gctx, u.key, u.data, u.contentType)
			if err != nil {
				return fmt.Errorf("%w: locale %q key %s: %w", ErrUpload, u.locale, u.key, err)
			}
			mu.Lock()
			stored = append(stored, u.key)
			mu.Unlock()
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stored, err
	}

	for i, u := range uploads {
		u.op.SetSource(urls[i])
	}
	return stored, nil
}
