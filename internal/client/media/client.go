// Package media is a client of the remote media processing API.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/GintGld/clip-editor/internal/lib/audio"
	"github.com/GintGld/clip-editor/internal/lib/logger/sl"
	"github.com/GintGld/clip-editor/internal/models"
)

const (
	uploadPath     = "/api/simple-editor/upload"
	analyzePath    = "/api/simple-editor/analyze-gaps"
	removeGapsPath = "/api/simple-editor/remove-gaps"
	exportPath     = "/api/simple-editor/export"
	separatePath   = "/api/audio/separate"
	mixPath        = "/api/audio/process"
	captionsPath   = "/api/captions/burn"

	// limit of error body kept for messages
	maxErrorBody = 4096
)

type Client struct {
	log        *slog.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(
	log *slog.Logger,
	baseURL string,
	apiKey string,
	timeout time.Duration,
) *Client {
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upload sends source media to the service.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (models.Source, error) {
	const op = "media.Upload"

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("video", name)
	if err != nil {
		return models.Source{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return models.Source{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := w.Close(); err != nil {
		return models.Source{}, fmt.Errorf("%s: %w", op, err)
	}

	var resp uploadResponse
	if err := c.do(ctx, uploadPath, w.FormDataContentType(), body, &resp, &resp.errorBody); err != nil {
		return models.Source{}, fmt.Errorf("%s: %w", op, err)
	}

	id := resp.SourceID
	if id == "" {
		id = resp.Path
	}

	return models.Source{
		ID:       id,
		Path:     resp.Path,
		Name:     name,
		Duration: resp.Duration,
		Width:    resp.Width,
		Height:   resp.Height,
		FPS:      resp.FPS,
	}, nil
}

// AnalyzeGaps transcribes the region and finds silent gaps in it.
func (c *Client) AnalyzeGaps(ctx context.Context, sourceID string, start, end, minGap float64) (GapAnalysis, error) {
	const op = "media.AnalyzeGaps"

	var resp analyzeResponse
	err := c.postJSON(ctx, analyzePath, analyzeRequest{
		SourceID:       sourceID,
		StartTime:      start,
		EndTime:        end,
		MinGapDuration: minGap,
	}, &resp, &resp.errorBody)
	if err != nil {
		return GapAnalysis{}, fmt.Errorf("%s: %w", op, err)
	}

	res := GapAnalysis{
		Words:        resp.Words,
		Gaps:         resp.Gaps,
		TotalGapTime: resp.TotalGapTime,
	}
	if res.Words == nil {
		res.Words = []models.Word{}
	}
	if res.Gaps == nil {
		res.Gaps = []models.Gap{}
	}

	return res, nil
}

// RemoveGaps cuts given gaps out of the region.
func (c *Client) RemoveGaps(ctx context.Context, sourceID string, start, end float64, gaps []models.Gap, padding float64) (models.Artifact, error) {
	const op = "media.RemoveGaps"

	var resp videoResponse
	err := c.postJSON(ctx, removeGapsPath, removeGapsRequest{
		SourceID:    sourceID,
		RegionStart: start,
		RegionEnd:   end,
		Gaps:        gaps,
		Padding:     padding,
	}, &resp, &resp.errorBody)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("%s: %w", op, err)
	}

	return artifact(resp)
}

// Export concatenates given intervals of the source.
func (c *Client) Export(ctx context.Context, sourceID string, segments []models.Segment) (models.Artifact, error) {
	const op = "media.Export"

	req := exportRequest{
		SourceID: sourceID,
		Mode:     "segments",
		Segments: make([]exportSegment, 0, len(segments)),
	}
	for _, s := range segments {
		req.Segments = append(req.Segments, exportSegment{Start: s.Start, End: s.End})
	}

	var resp videoResponse
	if err := c.postJSON(ctx, exportPath, req, &resp, &resp.errorBody); err != nil {
		return models.Artifact{}, fmt.Errorf("%s: %w", op, err)
	}

	return artifact(resp)
}

// BurnCaptions transcribes the video and burns captions into it.
func (c *Client) BurnCaptions(ctx context.Context, video []byte) (models.Artifact, error) {
	const op = "media.BurnCaptions"

	var resp videoResponse
	if err := c.postJSON(ctx, captionsPath, videoRequest{VideoData: video}, &resp, &resp.errorBody); err != nil {
		return models.Artifact{}, fmt.Errorf("%s: %w", op, err)
	}

	return artifact(resp)
}

// Separate splits video audio into vocals and music.
func (c *Client) Separate(ctx context.Context, video []byte) (audio.Stems, error) {
	const op = "media.Separate"

	var resp separateResponse
	if err := c.postJSON(ctx, separatePath, videoRequest{VideoData: video}, &resp, &resp.errorBody); err != nil {
		return audio.Stems{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(resp.Vocals) == 0 || len(resp.Music) == 0 {
		return audio.Stems{}, fmt.Errorf("%s: %w", op, &Error{Kind: KindBusiness, Message: "separation returned no stems"})
	}

	return audio.Stems{Vocals: resp.Vocals, Music: resp.Music}, nil
}

// Mix replaces video audio according to the request.
func (c *Client) Mix(ctx context.Context, req audio.MixRequest) (models.Artifact, error) {
	const op = "media.Mix"

	body := mixRequest{
		VideoData: req.Video,
		AudioOptions: audioOptions{
			Separate:          req.Separate,
			UseVocals:         req.Params.UseVocals,
			UseMusic:          req.Params.UseMusic,
			VocalsVolume:      req.Params.VocalsVolume,
			MusicVolume:       req.Params.MusicVolume,
			VocalsAudio:       req.Vocals,
			MusicAudio:        req.Music,
			CustomAudio:       req.Custom,
			CustomAudioVolume: req.Params.CustomVolume,
		},
	}

	var resp videoResponse
	if err := c.postJSON(ctx, mixPath, body, &resp, &resp.errorBody); err != nil {
		return models.Artifact{}, fmt.Errorf("%s: %w", op, err)
	}

	return artifact(resp)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, eb *errorBody) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return c.do(ctx, path, "application/json", bytes.NewReader(body), out, eb)
}

// do performs the request and decodes the response into out.
// eb must point into out.
func (c *Client) do(ctx context.Context, path string, contentType string, body io.Reader, out any, eb *errorBody) error {
	if c.baseURL == "" {
		return &MissingConfigError{Key: "remote.base_url"}
	}

	log := c.log.With(slog.String("path", path))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	log.Debug("calling media api")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("media api unreachable", sl.Err(err))
		return &Error{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: err.Error(), StatusCode: resp.StatusCode}
	}

	log.Debug(
		"media api responded",
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(data)),
		slog.Duration("took", time.Since(start)),
	)

	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &Error{Kind: KindTransport, Message: "malformed response: " + err.Error(), StatusCode: resp.StatusCode}
		}
		return &Error{Kind: KindTransport, Message: truncate(string(data)), StatusCode: resp.StatusCode}
	}

	if eb.MissingConfig != "" {
		return &MissingConfigError{Key: eb.MissingConfig}
	}
	if eb.Error != "" {
		return &Error{Kind: KindBusiness, Message: eb.Error, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Kind: KindTransport, Message: truncate(string(data)), StatusCode: resp.StatusCode}
	}

	return nil
}

func artifact(resp videoResponse) (models.Artifact, error) {
	if len(resp.VideoData) == 0 {
		return models.Artifact{}, &Error{Kind: KindBusiness, Message: "response has no video data"}
	}

	size := resp.FileSize
	if size == 0 {
		size = int64(len(resp.VideoData))
	}

	return models.Artifact{Data: resp.VideoData, FileSize: size}, nil
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
