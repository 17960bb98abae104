// Package session ties the crop engine together: it owns the decoded image,
// the corner state, the drag controller and the magnifier for one crop, and
// delivers exactly one Result when the crop is committed or cancelled.
package session

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/MeKo-Tech/quadcrop/internal/common"
	"github.com/MeKo-Tech/quadcrop/internal/encode"
	"github.com/MeKo-Tech/quadcrop/internal/magnifier"
	"github.com/MeKo-Tech/quadcrop/internal/quad"
	"github.com/MeKo-Tech/quadcrop/internal/rectify"
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// Result is the single outcome of a session.
type Result struct {
	Data      []byte
	Width     int
	Height    int
	Format    encode.Format
	Quad      quad.Quad // image-space corners used for the crop
	Cancelled bool
	Err       error
}

// OK reports whether the result carries encoded bytes.
func (r Result) OK() bool { return !r.Cancelled && r.Err == nil }

// Session is one interactive crop.
type Session struct {
	id        string
	opts      Options
	logger    *slog.Logger
	source    image.Image
	display   quad.DisplayTransform
	state     *quad.QuadState
	drag      *quad.DragController
	mag       *magnifier.Magnifier
	magTarget *magnifier.RasterTarget
	rectifier *rectify.Rectifier

	canvasOnce sync.Once
	canvas     *image.NRGBA

	mu     sync.Mutex
	closed bool
	done   chan Result
}

// Open decodes payload and starts a session on it. A payload that cannot be
// decoded yields an *ImageDecodeError.
func Open(ctx context.Context, payload []byte, opts Options) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, format, err := utils.DecodeImage(payload)
	if err != nil {
		return nil, &ImageDecodeError{Size: len(payload), Err: err}
	}
	s, err := New(img, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("decoded payload", "format", format, "bytes", len(payload))
	return s, nil
}

// New starts a session on an already decoded image. The corners start as the
// inset rectangle of the display surface.
func New(img image.Image, opts Options) (*Session, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	opts = opts.withDefaults()
	b := img.Bounds()
	display, err := quad.NewDisplayTransform(b.Dx(), b.Dy(), opts.ViewportWidth, opts.ViewportHeight)
	if err != nil {
		return nil, err
	}

	id := uuid.Must(uuid.NewV4()).String()
	logger := opts.Logger.With("session", id)

	state := quad.NewQuadState(display.InitialQuad(opts.InsetRatio), display.DisplayWidth, display.DisplayHeight)
	mag, magTarget := magnifier.NewRaster(img, opts.Magnifier)

	s := &Session{
		id:        id,
		opts:      opts,
		logger:    logger,
		source:    img,
		display:   display,
		state:     state,
		drag:      quad.NewDragController(state, opts.HitRadius),
		mag:       mag,
		magTarget: magTarget,
		rectifier: rectify.New(opts.Rectify, logger),
		done:      make(chan Result, 1),
	}
	logger.Info("session opened",
		"image_width", b.Dx(), "image_height", b.Dy(),
		"display_width", display.DisplayWidth, "display_height", display.DisplayHeight,
		"scale", display.Scale)
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Source returns the decoded image.
func (s *Session) Source() image.Image { return s.source }

// Display returns the image-to-display mapping.
func (s *Session) Display() quad.DisplayTransform { return s.display }

// Corners returns the current corners in display space.
func (s *Session) Corners() quad.Quad {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Corners
}

// ImageCorners returns the current corners in image pixels.
func (s *Session) ImageCorners() quad.Quad {
	return s.display.QuadToImage(s.Corners())
}

// Selected returns the dragged corner, or quad.NoCorner.
func (s *Session) Selected() quad.CornerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Selected
}

// Magnifier returns the session's magnifier.
func (s *Session) Magnifier() *magnifier.Magnifier { return s.mag }

// MagnifierFrame returns the current preview pixels, or nil when hidden.
func (s *Session) MagnifierFrame() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mag.Visible() {
		return nil
	}
	return s.magTarget.Image()
}

// Handle feeds one pointer event through the drag state machine and keeps the
// magnifier in sync. Events after the session closed are ignored.
func (s *Session) Handle(ev quad.PointerEvent) quad.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return quad.Update{Corner: quad.NoCorner}
	}

	up := s.drag.Handle(ev)
	switch up.Magnifier {
	case quad.MagnifierShow:
		if err := s.mag.Update(s.display.ToImage(up.Position), up.Pointer); err != nil {
			s.logger.Warn("magnifier update failed", "error", err)
		}
	case quad.MagnifierHide:
		s.mag.Hide()
	case quad.MagnifierKeep:
	}
	return up
}

// PlaceCorners sets all four corners from image pixel positions. Positions are
// clamped to the image like dragged corners.
func (s *Session) PlaceCorners(q quad.Quad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	dq := s.display.QuadToDisplay(q)
	for _, c := range quad.Corners {
		s.state.Move(c, dq[c])
	}
	s.state.Selected = quad.NoCorner
	s.mag.Hide()
	return nil
}

// Check validates the current corners without committing.
func (s *Session) Check() error {
	q := s.ImageCorners()
	g, err := rectify.ComputeOutputGeometry(q, s.opts.Rectify.OutputCap())
	if err != nil {
		return err
	}
	_, err = rectify.OutputToSource(q, g)
	return err
}

// Commit rectifies the current corners and encodes the crop in the
// background. Geometry errors are returned and also delivered through Done.
// Commit and Cancel succeed at most once between them.
func (s *Session) Commit(ctx context.Context) error {
	corners, err := s.finish()
	if err != nil {
		return err
	}
	imgQuad := s.display.QuadToImage(corners)
	if !utils.IsConvex(imgQuad.Points()) {
		s.logger.Warn("committing a non-convex quad, the crop will fold",
			"quad", imgQuad, "area", utils.PolygonArea(imgQuad.Points()))
	}
	sw := common.NewStopwatch("commit")

	res, err := s.rectifier.Rectify(ctx, s.source, imgQuad)
	if err != nil {
		s.logger.Warn("crop failed", "error", err, "quad", imgQuad)
		s.deliver(Result{Quad: imgQuad, Format: s.opts.Encode.Format, Err: err})
		return err
	}
	sw.Lap("rectify")

	go func() {
		data, err := encode.Bytes(res.Image, s.opts.Encode)
		sw.Lap("encode")
		if err != nil {
			s.logger.Error("encoding crop failed", "format", s.opts.Encode.Format, "error", err)
			s.deliver(Result{Quad: imgQuad, Format: s.opts.Encode.Format, Err: err})
			return
		}
		s.logger.Info("crop committed",
			"width", res.Geometry.Width, "height", res.Geometry.Height,
			"format", s.opts.Encode.Format, "bytes", len(data), "timings", sw)
		s.deliver(Result{
			Data:   data,
			Width:  res.Geometry.Width,
			Height: res.Geometry.Height,
			Format: s.opts.Encode.Format,
			Quad:   imgQuad,
		})
	}()
	return nil
}

// Cancel ends the session without a crop and delivers a cancelled Result.
func (s *Session) Cancel() error {
	if _, err := s.finish(); err != nil {
		return err
	}
	s.logger.Info("session cancelled")
	s.deliver(Result{Cancelled: true, Format: s.opts.Encode.Format})
	return nil
}

// Done returns the channel that receives the session's single Result. The
// channel is closed after that Result.
func (s *Session) Done() <-chan Result { return s.done }

// Closed reports whether Commit or Cancel has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// finish moves the session into its terminal state, ending any drag and
// releasing the magnifier. It returns the corners as of that moment.
func (s *Session) finish() (quad.Quad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return quad.Quad{}, ErrSessionClosed
	}
	s.closed = true
	s.state.Selected = quad.NoCorner
	s.mag.Dispose()
	return s.state.Corners, nil
}

func (s *Session) deliver(r Result) {
	s.done <- r
	close(s.done)
}
