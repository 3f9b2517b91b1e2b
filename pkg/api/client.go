package api

// API CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const maxErrorBody = 4096

var ErrMissingSubmissionID = errors.New("api: missing submission id")

// Client talks to the order and payment service under /api.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Products lists the catalog. Reads are retried with exponential backoff.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out ProductsResponse

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second

	err := backoff.RetryNotify(
		func() error {
			err := c.do(ctx, http.MethodGet, "products", nil, &out)
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.Temporary() {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			c.logger.Warn("Products request failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) SubmitMeasurements(ctx context.Context, req SubmissionRequest) (SubmissionResponse, error) {
	var out SubmissionResponse
	if err := c.do(ctx, http.MethodPost, "measurements", req, &out); err != nil {
		return SubmissionResponse{}, err
	}
	if out.SubmissionID == "" {
		return SubmissionResponse{}, ErrMissingSubmissionID
	}
	return out, nil
}

func (c *Client) Submission(ctx context.Context, id string) (Submission, error) {
	var out Submission
	if err := c.do(ctx, http.MethodGet, "measurements/"+url.PathEscape(id), nil, &out); err != nil {
		return Submission{}, err
	}
	return out, nil
}

func (c *Client) BookFitting(ctx context.Context, req FittingRequest) (FittingResponse, error) {
	var out FittingResponse
	if err := c.do(ctx, http.MethodPost, "virtual-fitting", req, &out); err != nil {
		return FittingResponse{}, err
	}
	return out, nil
}

func (c *Client) CreatePaymentOrder(ctx context.Context, req PaymentOrderRequest) (PaymentOrder, error) {
	if req.SubmissionID == "" {
		return PaymentOrder{}, ErrMissingSubmissionID
	}
	var out PaymentOrder
	if err := c.do(ctx, http.MethodPost, "create-payment-order", req, &out); err != nil {
		return PaymentOrder{}, err
	}
	return out, nil
}

func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodPost, "verify-payment", req, &out); err != nil {
		return StatusResponse{}, err
	}
	if out.Status != "success" {
		return out, fmt.Errorf("verify payment: status %q", out.Status)
	}
	return out, nil
}

func (c *Client) UploadImage(ctx context.Context, img ImageUpload) (UploadResponse, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("image_type", string(img.Type)); err != nil {
		return UploadResponse{}, fmt.Errorf("write field: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, img.FileName))
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(img.Content); err != nil {
		return UploadResponse{}, fmt.Errorf("write file: %w", err)
	}
	if err := w.Close(); err != nil {
		return UploadResponse{}, fmt.Errorf("close multipart: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "api", "upload-image")
	if err != nil {
		return UploadResponse{}, fmt.Errorf("build url: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	var out UploadResponse
	if err := c.send(httpReq, &out); err != nil {
		return UploadResponse{}, err
	}
	if out.FileURL == "" {
		return UploadResponse{}, errors.New("upload image: empty file url")
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, "api", path)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("API call",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope ErrorResponse
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		statusErr.Code = envelope.Error
		statusErr.Message = envelope.Message
	} else {
		statusErr.Message = strings.TrimSpace(string(raw))
	}
	return statusErr
}
