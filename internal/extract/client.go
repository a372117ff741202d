package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docingest/internal/common"
)

const partitionPath = "/general/v0/general"

// Client calls the external extractor's partition endpoint. It assumes
// nothing about the deployment beyond the base URL; strategy and timeout are
// fixed at construction.
type Client struct {
	baseURL  string
	strategy string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(baseURL, strategy string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, common.ConfigError("extractor base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strategy == "" {
		strategy = "auto"
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		strategy: strategy,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// Partition sends the file bytes to the extractor and returns its elements.
// Non-2xx responses and transport errors are fatal for the file. An empty
// element list is a validation error ("no data extracted"), not a success.
func (c *Client) Partition(ctx context.Context, fileName string, content []byte) ([]Element, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", fileName)
	if err != nil {
		return nil, common.WrapError(err, "build multipart body")
	}
	if _, err := part.Write(content); err != nil {
		return nil, common.WrapError(err, "write multipart body")
	}
	if err := mw.WriteField("strategy", c.strategy); err != nil {
		return nil, common.WrapError(err, "write strategy field")
	}
	if err := mw.Close(); err != nil {
		return nil, common.WrapError(err, "close multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+partitionPath, &body)
	if err != nil {
		return nil, common.WrapError(err, "build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	c.logger.Info("extract.request",
		"req_id", reqID,
		"file", fileName,
		"bytes", len(content),
		"strategy", c.strategy,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("extract.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.TransportError("extractor unreachable", err)
	}
	defer func(rc io.ReadCloser) {
		if err := rc.Close(); err != nil {
			c.logger.Warn("extract.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("extract.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		detail := strings.TrimSpace(string(raw))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return nil, common.TransportError("extractor returned status "+resp.Status+": "+detail, nil)
	}

	if err := ValidateElementsJSON(raw); err != nil {
		return nil, common.ValidationError("unexpected extractor response: " + err.Error())
	}
	var elements []Element
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, common.WrapError(err, "decode elements")
	}
	if len(elements) == 0 {
		return nil, common.ValidationError("no data extracted from " + fileName)
	}
	return elements, nil
}
