package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/quadcrop/internal/encode"
	"github.com/MeKo-Tech/quadcrop/internal/quad"
	"github.com/MeKo-Tech/quadcrop/internal/session"
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// stdoutPath selects standard output for --output.
const stdoutPath = "-"

func newCropCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crop <image>",
		Short: "Rectify a four-corner region of an image",
		Long: `Rectify the quadrilateral given by --corners (image pixels, TL TR BR BL)
into an upright rectangle. Without --corners the default selection is used:
the image inset by 10% on every side.

Supported inputs: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  quadcrop crop photo.jpg --corners 120,80,940,60,980,1300,90,1320
  quadcrop crop photo.jpg --format png --max-dimension 0 --output flat.png
  quadcrop crop photo.jpg --data-url`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrop(cmd, args[0])
		},
	}

	flags := cmd.Flags()
	flags.String("corners", "", "corner positions x1,y1,x2,y2,x3,y3,x4,y4 in image pixels (TL, TR, BR, BL)")
	flags.StringP("format", "f", "jpeg", "output format (jpeg, png, pdf)")
	flags.Int("max-dimension", 400, "cap for the longer output side in pixels (0 = no cap)")
	flags.Int("jpeg-quality", encode.DefaultJPEGQuality, "JPEG quality (1-100)")
	flags.StringP("output", "o", "", "output file (default: <input>_crop.<ext>, - for stdout)")
	flags.Int("workers", 0, "resampling goroutines (0 = one per CPU)")
	flags.String("debug-dir", "", "directory to write overlay and comparison PNGs")
	flags.String("overlay", "", "write the annotated selection overlay PNG to this path")
	flags.Bool("data-url", false, "print the crop as a data URL instead of writing a file")

	a.bind("output.format", flags.Lookup("format"))
	a.bind("crop.max_dimension", flags.Lookup("max-dimension"))
	a.bind("output.jpeg_quality", flags.Lookup("jpeg-quality"))
	a.bind("output.file", flags.Lookup("output"))
	a.bind("crop.workers", flags.Lookup("workers"))
	a.bind("crop.debug_dir", flags.Lookup("debug-dir"))
	return cmd
}

func (a *app) runCrop(cmd *cobra.Command, input string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	img, meta, err := utils.LoadImage(input)
	if err != nil {
		return fmt.Errorf("loading %s: %w", input, err)
	}
	a.logger.Debug("image loaded", "path", meta.Path, "format", meta.Format,
		"bytes", meta.SizeBytes, "width", meta.Width, "height", meta.Height)

	sess, err := session.New(img, a.cfg.ToSessionOptions(a.logger))
	if err != nil {
		return fmt.Errorf("opening %s: %w", input, err)
	}

	if s, _ := cmd.Flags().GetString("corners"); s != "" {
		q, err := quad.ParseQuad(s)
		if err != nil {
			return fmt.Errorf("invalid --corners: %w", err)
		}
		if err := sess.PlaceCorners(q); err != nil {
			return err
		}
	}

	if path, _ := cmd.Flags().GetString("overlay"); path != "" {
		if err := writeOverlay(path, sess); err != nil {
			return err
		}
	}

	if err := sess.Check(); err != nil {
		_ = sess.Cancel()
		return fmt.Errorf("invalid corners for %s: %w", input, err)
	}
	if err := sess.Commit(ctx); err != nil {
		return fmt.Errorf("cropping %s: %w", input, err)
	}
	res := <-sess.Done()
	if res.Err != nil {
		return fmt.Errorf("cropping %s: %w", input, res.Err)
	}

	out := cmd.OutOrStdout()
	if dataURL, _ := cmd.Flags().GetBool("data-url"); dataURL {
		_, err := fmt.Fprintln(out, encode.DataURL(res.Data, res.Format))
		return err
	}

	target := a.cfg.Output.File
	if target == "" {
		target = defaultOutputPath(input, res.Format)
	}
	if target == stdoutPath {
		_, err := out.Write(res.Data)
		return err
	}
	if err := os.WriteFile(target, res.Data, 0o644); err != nil { //nolint:gosec // crops are meant to be readable
		return fmt.Errorf("writing %s: %w", target, err)
	}
	_, err = fmt.Fprintf(out, "wrote %s (%dx%d %s, %d bytes)\n", target, res.Width, res.Height, res.Format, len(res.Data))
	return err
}

func writeOverlay(path string, sess *session.Session) (err error) {
	f, err := os.Create(path) //nolint:gosec // path given on the command line
	if err != nil {
		return fmt.Errorf("creating overlay: %w", err)
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	return writeOverlayTo(f, sess)
}

func writeOverlayTo(w io.Writer, sess *session.Session) error {
	if err := encode.Encode(w, sess.RenderOverlay(), encode.Options{Format: encode.FormatPNG}); err != nil {
		return fmt.Errorf("writing overlay: %w", err)
	}
	return nil
}

// defaultOutputPath turns dir/name.ext into dir/name_crop.<format ext>.
func defaultOutputPath(input string, f encode.Format) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_crop" + f.Extension()
}
