package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/quadcrop/internal/encode"
	"github.com/MeKo-Tech/quadcrop/internal/server"
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// RegisterServerSteps registers the HTTP crop endpoint step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a crop server is running$`, testCtx.aCropServerIsRunning)
	sc.Step(`^I upload the image to /crop$`, testCtx.iUploadTheImage)
	sc.Step(`^I upload the image to /crop with "([^"]*)"$`, testCtx.iUploadTheImageWith)
	sc.Step(`^I upload the bytes "([^"]*)" to /crop$`, testCtx.iUploadTheBytes)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should be a (\d+)x(\d+) image$`, testCtx.theResponseShouldBeAnImage)
	sc.Step(`^the response error type should be "([^"]*)"$`, testCtx.theResponseErrorTypeShouldBe)
}

func (testCtx *TestContext) aCropServerIsRunning() error {
	srv, err := server.NewServer(server.Config{
		MaxUploadMB:        5,
		TimeoutSec:         10,
		MaxSessions:        4,
		MaxConcurrentCrops: 2,
		Session:            testCtx.Options,
		Logger:             testCtx.Options.Logger,
	})
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	testCtx.CropServer = srv
	testCtx.HTTPServer = httptest.NewServer(mux)
	return nil
}

func (testCtx *TestContext) iUploadTheImage() error {
	return testCtx.iUploadTheImageWith("")
}

// iUploadTheImageWith posts the source as PNG; fields is a query string of
// extra form values such as "corners=...&format=png".
func (testCtx *TestContext) iUploadTheImageWith(fields string) error {
	if testCtx.Source == nil {
		return errors.New("no source image")
	}
	payload, err := encode.Bytes(testCtx.Source, encode.Options{Format: encode.FormatPNG})
	if err != nil {
		return err
	}
	return testCtx.upload(payload, fields)
}

func (testCtx *TestContext) iUploadTheBytes(payload string) error {
	return testCtx.upload([]byte(payload), "")
}

func (testCtx *TestContext) upload(payload []byte, fields string) error {
	if testCtx.HTTPServer == nil {
		return errors.New("no server is running")
	}
	values, err := url.ParseQuery(fields)
	if err != nil {
		return fmt.Errorf("parse fields: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "upload.png")
	if err != nil {
		return err
	}
	if _, err := fw.Write(payload); err != nil {
		return err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, values.Get(k)); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, testCtx.HTTPServer.URL+"/crop", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := testCtx.HTTPServer.Client().Do(req)
	if err != nil {
		return fmt.Errorf("post /crop: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPBody)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != value {
		return fmt.Errorf("expected header %s %q, got %q", name, value, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldBeAnImage(width, height int) error {
	img, _, err := utils.DecodeImage(testCtx.LastHTTPBody)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if img.Bounds() != image.Rect(0, 0, width, height) {
		return fmt.Errorf("expected %dx%d, got %v", width, height, img.Bounds())
	}
	return nil
}

func (testCtx *TestContext) theResponseErrorTypeShouldBe(errType string) error {
	var resp server.ErrorResponse
	if err := json.Unmarshal(testCtx.LastHTTPBody, &resp); err != nil {
		return fmt.Errorf("decode error response: %w", err)
	}
	if resp.ErrorType != errType {
		return fmt.Errorf("expected error type %q, got %q (%s)", errType, resp.ErrorType, resp.Error)
	}
	return nil
}
