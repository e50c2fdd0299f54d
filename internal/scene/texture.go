package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"iter"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// ErrTextureLoadFailed wraps any failure to turn a photo into a texture.
var ErrTextureLoadFailed = errors.New("texture load failed")

// ThumbSize is the edge length of the downsampled photo a texture keeps.
const ThumbSize = 16

// maxPhotoBytes caps a single photo download.
const maxPhotoBytes = 16 << 20

// Texture is a decoded participant photo reduced to what the renderer
// needs: a small thumbnail and its average colour. The full image is not
// kept, which bounds memory for large participant sets.
type Texture struct {
	Ref    string
	Width  int
	Height int
	Tint   color.RGBA
	Thumb  *image.RGBA
}

// TextureLoader turns a photo reference into a texture.
type TextureLoader interface {
	Load(ctx context.Context, ref string) (*Texture, error)
}

// LoadResult is one step of a sequential load.
type LoadResult struct {
	Ref     string
	Texture *Texture
	Err     error
}

// LoadSequential loads refs one at a time, yielding (index, result) after
// each attempt. Failures are yielded too; iteration stops early when the
// consumer stops or ctx is done.
func LoadSequential(ctx context.Context, loader TextureLoader, refs []string) iter.Seq2[int, LoadResult] {
	return func(yield func(int, LoadResult) bool) {
		for i, ref := range refs {
			if ctx.Err() != nil {
				return
			}
			tex, err := loader.Load(ctx, ref)
			if !yield(i, LoadResult{Ref: ref, Texture: tex, Err: err}) {
				return
			}
		}
	}
}

// PhotoLoader reads photos over HTTP or from a file system. Absolute
// http(s) refs are fetched as is; other refs are resolved against BaseURL
// when set, otherwise against Files.
type PhotoLoader struct {
	BaseURL string
	Files   fs.FS
	Client  *http.Client
}

// NewPhotoLoader creates a PhotoLoader with a bounded HTTP client. files
// may be nil when every photo is remote.
func NewPhotoLoader(baseURL string, files fs.FS, timeout time.Duration) *PhotoLoader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PhotoLoader{
		BaseURL: baseURL,
		Files:   files,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Load fetches and decodes one photo.
func (l *PhotoLoader) Load(ctx context.Context, ref string) (*Texture, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty photo reference", ErrTextureLoadFailed)
	}
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return l.fetch(ctx, ref)
	}
	if l.BaseURL != "" {
		return l.fetch(ctx, strings.TrimRight(l.BaseURL, "/")+"/"+strings.TrimLeft(ref, "/"))
	}
	return l.open(ref)
}

func (l *PhotoLoader) fetch(ctx context.Context, target string) (*Texture, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTextureLoadFailed, target, err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTextureLoadFailed, target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrTextureLoadFailed, target, resp.StatusCode)
	}
	return Decode(target, io.LimitReader(resp.Body, maxPhotoBytes))
}

func (l *PhotoLoader) open(ref string) (*Texture, error) {
	if l.Files == nil {
		return nil, fmt.Errorf("%w: no photo source for %s", ErrTextureLoadFailed, ref)
	}
	f, err := l.Files.Open(path.Clean(strings.TrimLeft(ref, "/")))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTextureLoadFailed, err)
	}
	defer f.Close()
	return Decode(ref, f)
}

// Decode reads an image and reduces it to a Texture.
func Decode(ref string, r io.Reader) (*Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTextureLoadFailed, ref, err)
	}
	return NewTexture(ref, img), nil
}

// NewTexture downsamples img into a thumbnail and computes its tint.
func NewTexture(ref string, img image.Image) *Texture {
	b := img.Bounds()
	thumb := image.NewRGBA(image.Rect(0, 0, ThumbSize, ThumbSize))
	var r, g, bl, n uint64
	for ty := 0; ty < ThumbSize; ty++ {
		for tx := 0; tx < ThumbSize; tx++ {
			sx := b.Min.X + (2*tx+1)*b.Dx()/(2*ThumbSize)
			sy := b.Min.Y + (2*ty+1)*b.Dy()/(2*ThumbSize)
			c := color.RGBAModel.Convert(img.At(sx, sy)).(color.RGBA)
			thumb.SetRGBA(tx, ty, c)
			if c.A > 0 {
				r += uint64(c.R)
				g += uint64(c.G)
				bl += uint64(c.B)
				n++
			}
		}
	}
	tint := color.RGBA{A: 255}
	if n > 0 {
		tint.R, tint.G, tint.B = uint8(r/n), uint8(g/n), uint8(bl/n)
	}
	return &Texture{Ref: ref, Width: b.Dx(), Height: b.Dy(), Tint: tint, Thumb: thumb}
}
