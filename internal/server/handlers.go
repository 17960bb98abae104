package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/quadcrop/internal/encode"
	"github.com/MeKo-Tech/quadcrop/internal/quad"
	"github.com/MeKo-Tech/quadcrop/internal/rectify"
	"github.com/MeKo-Tech/quadcrop/internal/session"
	"github.com/MeKo-Tech/quadcrop/internal/version"
)

const (
	errTypeInvalidRequest = "invalid_request"
	errTypeDecode         = "decode_error"
	errTypeDegenerate     = "degenerate_geometry"
	errTypeTimeout        = "timeout"
	errTypeBusy           = "busy"
	errTypeProcessing     = "processing_error"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:         "healthy",
		Version:        version.Version,
		Time:           time.Now().UTC().Format(time.RFC3339),
		ActiveSessions: s.ActiveSessions(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Error encoding health response", "error", err)
	}
}

// cropHandler performs a one-shot crop: multipart field "image" plus optional
// "corners" (image pixels), "format" and "max_dimension". With response=json
// the crop comes back as a data URL inside a JSON body.
func (s *Server) cropHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "File too large", errTypeInvalidRequest, http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", errTypeInvalidRequest, http.StatusBadRequest)
		}
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", errTypeInvalidRequest, http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", errTypeProcessing, http.StatusInternalServerError)
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	opts, corners, err := s.cropOptions(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), errTypeInvalidRequest, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	select {
	case s.cropSlots <- struct{}{}:
		defer func() { <-s.cropSlots }()
	case <-ctx.Done():
		s.writeErrorResponse(w, "Server busy, try again later", errTypeBusy, http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	res, err := s.runCrop(ctx, data, opts, corners)
	elapsed := time.Since(start)
	if err != nil {
		status, errType := classifyError(err)
		cropRequestsTotal.WithLabelValues("http", cropStatus(errType)).Inc()
		s.logger.Warn("crop request failed", "error", err, "status", status)
		s.writeErrorResponse(w, fmt.Sprintf("crop failed: %v", err), errType, status)
		return
	}

	cropRequestsTotal.WithLabelValues("http", "success").Inc()
	cropDuration.WithLabelValues("http", string(res.Format)).Observe(elapsed.Seconds())
	cropOutputPixels.Observe(float64(res.Width * res.Height))

	if r.FormValue("response") == "json" {
		s.writeCropJSON(w, res, elapsed)
		return
	}

	w.Header().Set("Content-Type", res.Format.MIMEType())
	w.Header().Set("Content-Disposition", "inline; filename=\"crop"+res.Format.Extension()+"\"")
	w.Header().Set("X-Crop-Width", strconv.Itoa(res.Width))
	w.Header().Set("X-Crop-Height", strconv.Itoa(res.Height))
	if _, err := w.Write(res.Data); err != nil {
		s.logger.Error("Error writing crop response", "error", err)
	}
}

// cropOptions reads the optional form parameters of a crop request.
func (s *Server) cropOptions(r *http.Request) (session.Options, *quad.Quad, error) {
	opts := s.sessionOpts

	if v := r.FormValue("format"); v != "" {
		f, err := encode.ParseFormat(v)
		if err != nil {
			return opts, nil, err
		}
		opts.Encode.Format = f
	}

	if v := r.FormValue("max_dimension"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, nil, fmt.Errorf("invalid max_dimension %q", v)
		}
		opts.Rectify.MaxDimension = rectify.MaxDimensionSetting(n)
	}

	if v := r.FormValue("corners"); v != "" {
		q, err := quad.ParseQuad(v)
		if err != nil {
			return opts, nil, fmt.Errorf("invalid corners: %w", err)
		}
		return opts, &q, nil
	}
	return opts, nil, nil
}

// runCrop opens a throwaway session, optionally places the corners and
// commits. Without corners the default inset quad is cropped.
func (s *Server) runCrop(ctx context.Context, data []byte, opts session.Options, corners *quad.Quad) (session.Result, error) {
	sess, err := session.Open(ctx, data, opts)
	if err != nil {
		return session.Result{}, err
	}
	if corners != nil {
		if err := sess.PlaceCorners(*corners); err != nil {
			return session.Result{}, err
		}
	}
	if err := sess.Commit(ctx); err != nil {
		return session.Result{}, err
	}

	select {
	case res := <-sess.Done():
		return res, res.Err
	case <-ctx.Done():
		return session.Result{}, ctx.Err()
	}
}

func (s *Server) writeCropJSON(w http.ResponseWriter, res session.Result, elapsed time.Duration) {
	corners := make([]float64, 0, 8)
	for _, p := range res.Quad {
		corners = append(corners, p.X, p.Y)
	}
	response := CropResponse{
		Success: true,
		Width:   res.Width,
		Height:  res.Height,
		Format:  string(res.Format),
		Corners: corners,
		DataURL: encode.DataURL(res.Data, res.Format),
		TimeMs:  elapsed.Milliseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Error encoding crop response", "error", err)
	}
}

// classifyError maps crop failures to an HTTP status and an error type.
func classifyError(err error) (int, string) {
	var decodeErr *session.ImageDecodeError
	switch {
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, errTypeDecode
	case errors.Is(err, rectify.ErrDegenerateGeometry):
		return http.StatusUnprocessableEntity, errTypeDegenerate
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errTypeTimeout
	default:
		return http.StatusInternalServerError, errTypeProcessing
	}
}

func cropStatus(errType string) string {
	if errType == errTypeDegenerate {
		return "degenerate"
	}
	return "error"
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message, errType string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Success:   false,
		Error:     message,
		ErrorType: errType,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Error writing error response", "error", err)
	}
}
