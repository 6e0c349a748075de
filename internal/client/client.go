// Package client is the HTTP client of inv-server, used by invctl.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// noOpCode envelope code of a transfer into the current room
const noOpCode = 40900

// envelope mirrors httpapi.Result
type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// APIError non-2xx answer. Unwrap maps the status back to the domain sentinel.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inv-server: %s (http %d, code %d)", e.Message, e.Status, e.Code)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusConflict:
		if e.Code == noOpCode {
			return domain.ErrNoOp
		}
		return domain.ErrConflict
	}
	return nil
}

// Client inv-server API 客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// New baseURL like http://localhost:8080
func New(baseURL string, logger *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	return &Client{httpClient: c, logger: logger}
}

// TransferResult answer of POST /equipment/{id}/transfer
type TransferResult struct {
	HistoryID    string `json:"history_id"`
	OldCode      string `json:"old_code"`
	NewCode      string `json:"new_code"`
	FromRoomName string `json:"from_room_name"`
	ToRoomName   string `json:"to_room_name"`
	Summary      string `json:"summary"`
}

type HistoryRow struct {
	HistoryID     string `json:"history_id"`
	FromRoomName  string `json:"from_room_name"`
	ToRoomName    string `json:"to_room_name"`
	OldCode       string `json:"old_code"`
	NewCode       string `json:"new_code"`
	TransferredAt string `json:"transferred_at"`
	Notes         string `json:"notes"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Total         int        `json:"total"`
	ImportedCount int        `json:"imported_count"`
	FailedCount   int        `json:"failed_count"`
	Errors        []RowError `json:"errors"`
	Codes         []string   `json:"codes"`
}

// Health GET /healthz
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.httpClient.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return fmt.Errorf("failed to reach inv-server: %w", err)
	}
	if resp.IsError() {
		return decodeError(resp)
	}
	return nil
}

// WaitReady polls Health until it succeeds or ctx ends.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) error {
	for {
		err := c.Health(ctx)
		if err == nil {
			return nil
		}
		c.logger.Debug("inv-server not ready", zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("inv-server not ready: %w", err)
		case <-time.After(interval):
		}
	}
}

func (c *Client) Transfer(ctx context.Context, equipmentID, toRoomID, notes string) (*TransferResult, error) {
	var out TransferResult
	err := c.do(ctx, http.MethodPost, "/api/v1/equipment/"+equipmentID+"/transfer",
		map[string]string{"to_room_id": toRoomID, "notes": notes}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History newest first
func (c *Client) History(ctx context.Context, equipmentID string) ([]HistoryRow, error) {
	var out struct {
		Items []HistoryRow `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/equipment/"+equipmentID+"/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Import uploads a workbook into a room.
func (c *Client) Import(ctx context.Context, organizationID, roomID, fileName string, file io.Reader) (*ImportResult, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"organization_id": organizationID, "room_id": roomID}).
		SetFileReader("file", fileName, file).
		Post("/api/v1/import")
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", fileName, err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	var out ImportResult
	if err := decodeResult(resp.Body(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export returns the workbook bytes and the server-suggested file name.
func (c *Client) Export(ctx context.Context, organizationID string) ([]byte, string, error) {
	resp, err := c.httpClient.R().SetContext(ctx).Get("/api/v1/organizations/" + organizationID + "/export")
	if err != nil {
		return nil, "", fmt.Errorf("failed to export organization: %w", err)
	}
	if resp.IsError() {
		return nil, "", decodeError(resp)
	}
	name := "inventory.xlsx"
	if cd := resp.Header().Get("Content-Disposition"); strings.Contains(cd, "filename=") {
		name = strings.Trim(cd[strings.Index(cd, "filename=")+len("filename="):], `"`)
	}
	return resp.Body(), name, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.httpClient.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("inv-server call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return decodeError(resp)
	}
	return decodeResult(resp.Body(), out)
}

func decodeResult(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

func decodeError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.Message != "" {
		apiErr.Code = env.Code
		apiErr.Message = env.Message
	}
	return apiErr
}
