package support

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/quadcrop/internal/encode"
	"github.com/MeKo-Tech/quadcrop/internal/quad"
	"github.com/MeKo-Tech/quadcrop/internal/rectify"
	"github.com/MeKo-Tech/quadcrop/internal/session"
	"github.com/MeKo-Tech/quadcrop/internal/testutil"
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

const positionTolerance = 1e-6

// RegisterSessionSteps registers the crop session step definitions.
func (testCtx *TestContext) RegisterSessionSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a (\d+)x(\d+) gradient image$`, testCtx.aGradientImage)
	sc.Step(`^a viewport of (\d+)x(\d+)$`, testCtx.aViewportOf)
	sc.Step(`^the crop format is "([^"]*)"$`, testCtx.theCropFormatIs)
	sc.Step(`^the maximum output dimension is (\d+)$`, testCtx.theMaximumOutputDimensionIs)
	sc.Step(`^I open a session$`, testCtx.iOpenASession)
	sc.Step(`^I open a session on the bytes "([^"]*)"$`, testCtx.iOpenASessionOnTheBytes)
	sc.Step(`^opening fails with an image decode error$`, testCtx.openingFailsWithAnImageDecodeError)
	sc.Step(`^the display is (\d+)x(\d+) at scale ([\d.]+)$`, testCtx.theDisplayIs)
	sc.Step(`^the corners are at image positions "([^"]*)"$`, testCtx.theCornersAreAtImagePositions)
	sc.Step(`^I place the corners at "([^"]*)"$`, testCtx.iPlaceTheCornersAt)

	sc.Step(`^I (press|move|release|leave) at \((-?[\d.]+), (-?[\d.]+)\)$`, testCtx.iPointerAt)
	sc.Step(`^I (press|move|release|leave) with touch at \((-?[\d.]+), (-?[\d.]+)\)$`, testCtx.iTouchAt)
	sc.Step(`^corner "(\w+)" is selected$`, testCtx.cornerIsSelected)
	sc.Step(`^no corner is selected$`, testCtx.noCornerIsSelected)
	sc.Step(`^the magnifier shows image position \((-?[\d.]+), (-?[\d.]+)\)$`, testCtx.theMagnifierShows)
	sc.Step(`^the magnifier is hidden$`, testCtx.theMagnifierIsHidden)
	sc.Step(`^a redraw is requested$`, testCtx.aRedrawIsRequested)
	sc.Step(`^the default action is suppressed$`, testCtx.theDefaultActionIsSuppressed)
	sc.Step(`^the default action is not suppressed$`, testCtx.theDefaultActionIsNotSuppressed)
	sc.Step(`^corner "(\w+)" is at display position \((-?[\d.]+), (-?[\d.]+)\)$`, testCtx.cornerIsAtDisplayPosition)

	sc.Step(`^I commit the crop$`, testCtx.iCommitTheCrop)
	sc.Step(`^I cancel the crop$`, testCtx.iCancelTheCrop)
	sc.Step(`^the commit fails with a degenerate geometry error$`, testCtx.theCommitFailsWithADegenerateGeometryError)
	sc.Step(`^the session delivers exactly one result$`, testCtx.theSessionDeliversExactlyOneResult)
	sc.Step(`^the result is a (\d+)x(\d+) "(\w+)" crop$`, testCtx.theResultIsACrop)
	sc.Step(`^the result is cancelled with no data$`, testCtx.theResultIsCancelledWithNoData)
	sc.Step(`^the result carries a degenerate geometry error$`, testCtx.theResultCarriesADegenerateGeometryError)
	sc.Step(`^output pixel \((\d+), (\d+)\) matches source pixel \((\d+), (\d+)\)$`, testCtx.outputPixelMatchesSourcePixel)
	sc.Step(`^pointer events are ignored$`, testCtx.pointerEventsAreIgnored)
	sc.Step(`^committing again fails because the session is closed$`, testCtx.committingAgainFails)
}

func (testCtx *TestContext) aGradientImage(width, height int) error {
	testCtx.Source = testutil.Gradient(width, height)
	return nil
}

func (testCtx *TestContext) aViewportOf(width, height int) error {
	testCtx.Options.ViewportWidth = float64(width)
	testCtx.Options.ViewportHeight = float64(height)
	return nil
}

func (testCtx *TestContext) theCropFormatIs(format string) error {
	f, err := encode.ParseFormat(format)
	if err != nil {
		return err
	}
	testCtx.Options.Encode.Format = f
	return nil
}

func (testCtx *TestContext) theMaximumOutputDimensionIs(maxDim int) error {
	testCtx.Options.Rectify.MaxDimension = rectify.MaxDimensionSetting(maxDim)
	return nil
}

// iOpenASession encodes the source as PNG and opens a session on the bytes,
// the same path a server upload takes.
func (testCtx *TestContext) iOpenASession() error {
	if testCtx.Source == nil {
		return errors.New("no source image")
	}
	payload, err := encode.Bytes(testCtx.Source, encode.Options{Format: encode.FormatPNG})
	if err != nil {
		return err
	}
	testCtx.Session, err = session.Open(context.Background(), payload, testCtx.Options)
	return err
}

func (testCtx *TestContext) iOpenASessionOnTheBytes(payload string) error {
	testCtx.Session, testCtx.LastError = session.Open(context.Background(), []byte(payload), testCtx.Options)
	return nil
}

func (testCtx *TestContext) openingFailsWithAnImageDecodeError() error {
	var decodeErr *session.ImageDecodeError
	if !errors.As(testCtx.LastError, &decodeErr) {
		return fmt.Errorf("expected an image decode error, got %v", testCtx.LastError)
	}
	if testCtx.Session != nil {
		return errors.New("a session was opened on undecodable bytes")
	}
	return nil
}

func (testCtx *TestContext) theDisplayIs(width, height int, scale float64) error {
	d := testCtx.Session.Display()
	w, h := d.DisplaySize()
	if w != width || h != height {
		return fmt.Errorf("expected display %dx%d, got %dx%d", width, height, w, h)
	}
	if math.Abs(d.Scale-scale) > positionTolerance {
		return fmt.Errorf("expected scale %g, got %g", scale, d.Scale)
	}
	return nil
}

func (testCtx *TestContext) theCornersAreAtImagePositions(s string) error {
	want, err := quad.ParseQuad(s)
	if err != nil {
		return err
	}
	got := testCtx.Session.ImageCorners()
	for _, c := range quad.Corners {
		if !near(got[c], want[c]) {
			return fmt.Errorf("corner %s: expected %v, got %v", c, want[c], got[c])
		}
	}
	return nil
}

func (testCtx *TestContext) iPlaceTheCornersAt(s string) error {
	q, err := quad.ParseQuad(s)
	if err != nil {
		return err
	}
	return testCtx.Session.PlaceCorners(q)
}

func (testCtx *TestContext) handle(action string, x, y float64, touch bool) error {
	a, ok := quad.ParseAction(map[string]string{
		"press": "down", "move": "move", "release": "up", "leave": "leave",
	}[action])
	if !ok {
		return fmt.Errorf("unknown pointer action %q", action)
	}
	testCtx.LastUpdate = testCtx.Session.Handle(quad.PointerEvent{Action: a, X: x, Y: y, Touch: touch})
	return nil
}

func (testCtx *TestContext) iPointerAt(action string, x, y float64) error {
	return testCtx.handle(action, x, y, false)
}

func (testCtx *TestContext) iTouchAt(action string, x, y float64) error {
	return testCtx.handle(action, x, y, true)
}

func (testCtx *TestContext) cornerIsSelected(label string) error {
	want, err := quad.ParseCornerID(label)
	if err != nil {
		return err
	}
	if got := testCtx.Session.Selected(); got != want {
		return fmt.Errorf("expected %s selected, got %s", want, got)
	}
	return nil
}

func (testCtx *TestContext) noCornerIsSelected() error {
	if got := testCtx.Session.Selected(); got != quad.NoCorner {
		return fmt.Errorf("expected no selection, got %s", got)
	}
	return nil
}

func (testCtx *TestContext) theMagnifierShows(x, y float64) error {
	m := testCtx.Session.Magnifier()
	if !m.Visible() {
		return errors.New("magnifier is hidden")
	}
	if !near(m.Center(), utils.Pt(x, y)) {
		return fmt.Errorf("magnifier centred on %v, expected (%g, %g)", m.Center(), x, y)
	}
	frame := testCtx.Session.MagnifierFrame()
	if frame == nil {
		return errors.New("visible magnifier has no frame")
	}
	if d := m.Config().Diameter; frame.Bounds() != image.Rect(0, 0, d, d) {
		return fmt.Errorf("magnifier frame is %v, expected %dx%d", frame.Bounds(), d, d)
	}
	return nil
}

func (testCtx *TestContext) theMagnifierIsHidden() error {
	if testCtx.Session.Magnifier().Visible() {
		return errors.New("magnifier is visible")
	}
	return nil
}

func (testCtx *TestContext) aRedrawIsRequested() error {
	if !testCtx.LastUpdate.Redraw {
		return errors.New("expected a redraw")
	}
	return nil
}

func (testCtx *TestContext) theDefaultActionIsSuppressed() error {
	if !testCtx.LastUpdate.SuppressDefault {
		return errors.New("expected the default action to be suppressed")
	}
	return nil
}

func (testCtx *TestContext) theDefaultActionIsNotSuppressed() error {
	if testCtx.LastUpdate.SuppressDefault {
		return errors.New("expected the default action to go through")
	}
	return nil
}

func (testCtx *TestContext) cornerIsAtDisplayPosition(label string, x, y float64) error {
	c, err := quad.ParseCornerID(label)
	if err != nil {
		return err
	}
	if got := testCtx.Session.Corners()[c]; !near(got, utils.Pt(x, y)) {
		return fmt.Errorf("corner %s at %v, expected (%g, %g)", c, got, x, y)
	}
	return nil
}

func (testCtx *TestContext) iCommitTheCrop() error {
	testCtx.LastError = testCtx.Session.Commit(context.Background())
	return nil
}

func (testCtx *TestContext) iCancelTheCrop() error {
	return testCtx.Session.Cancel()
}

func (testCtx *TestContext) theCommitFailsWithADegenerateGeometryError() error {
	var geomErr *rectify.DegenerateGeometryError
	if !errors.As(testCtx.LastError, &geomErr) {
		return fmt.Errorf("expected a degenerate geometry error, got %v", testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theSessionDeliversExactlyOneResult() error {
	if err := testCtx.collectResults(); err != nil {
		return err
	}
	if len(testCtx.Results) != 1 {
		return fmt.Errorf("expected exactly one result, got %d", len(testCtx.Results))
	}
	return nil
}

func (testCtx *TestContext) theResultIsACrop(width, height int, format string) error {
	r, err := testCtx.onlyResult()
	if err != nil {
		return err
	}
	if !r.OK() {
		return fmt.Errorf("result failed: cancelled=%v err=%v", r.Cancelled, r.Err)
	}
	if r.Width != width || r.Height != height || string(r.Format) != format {
		return fmt.Errorf("expected %dx%d %s, got %dx%d %s", width, height, format, r.Width, r.Height, r.Format)
	}
	if r.Format == encode.FormatPDF {
		return nil
	}
	img, _, err := utils.DecodeImage(r.Data)
	if err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if img.Bounds() != image.Rect(0, 0, width, height) {
		return fmt.Errorf("encoded image is %v", img.Bounds())
	}
	return nil
}

func (testCtx *TestContext) theResultIsCancelledWithNoData() error {
	r, err := testCtx.onlyResult()
	if err != nil {
		return err
	}
	if !r.Cancelled || len(r.Data) != 0 || r.Err != nil {
		return fmt.Errorf("expected a bare cancellation, got cancelled=%v bytes=%d err=%v", r.Cancelled, len(r.Data), r.Err)
	}
	return nil
}

func (testCtx *TestContext) theResultCarriesADegenerateGeometryError() error {
	r, err := testCtx.onlyResult()
	if err != nil {
		return err
	}
	if !errors.Is(r.Err, rectify.ErrDegenerateGeometry) {
		return fmt.Errorf("expected a degenerate geometry error, got %v", r.Err)
	}
	if len(r.Data) != 0 {
		return errors.New("failed crop carries data")
	}
	return nil
}

func (testCtx *TestContext) outputPixelMatchesSourcePixel(ox, oy, sx, sy int) error {
	r, err := testCtx.onlyResult()
	if err != nil {
		return err
	}
	img, _, err := utils.DecodeImage(r.Data)
	if err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	got := utils.ToNRGBA(img).NRGBAAt(ox, oy)
	want := testCtx.Source.NRGBAAt(sx, sy)
	if got != want {
		return fmt.Errorf("output (%d,%d) = %v, source (%d,%d) = %v", ox, oy, got, sx, sy, want)
	}
	return nil
}

func (testCtx *TestContext) pointerEventsAreIgnored() error {
	before := testCtx.Session.Corners()
	up := testCtx.Session.Handle(quad.PointerEvent{Action: quad.ActionDown, X: before[0].X, Y: before[0].Y})
	if up.Redraw || up.Corner != quad.NoCorner {
		return fmt.Errorf("closed session reacted to a press: %+v", up)
	}
	if testCtx.Session.Corners() != before {
		return errors.New("corners moved after the session closed")
	}
	return nil
}

func (testCtx *TestContext) committingAgainFails() error {
	if err := testCtx.Session.Commit(context.Background()); !errors.Is(err, session.ErrSessionClosed) {
		return fmt.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if err := testCtx.Session.Cancel(); !errors.Is(err, session.ErrSessionClosed) {
		return fmt.Errorf("expected ErrSessionClosed from cancel, got %v", err)
	}
	return nil
}

func near(a, b utils.Point) bool {
	return math.Abs(a.X-b.X) <= positionTolerance && math.Abs(a.Y-b.Y) <= positionTolerance
}
