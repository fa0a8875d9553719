package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aec-internal/requisitions-api/pkg/config"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// ValueRange pairs an A1 range with a 2D block of cell values, matching the
// wire shape of the values API.
type ValueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

// bearerSource abstracts token minting so tests can stub it.
type bearerSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the spreadsheet values API. Reads are authorised by API
// key; writes carry the service-account bearer token.
type Client struct {
	baseURL       string
	spreadsheetID string
	apiKey        string
	tokens        bearerSource
	http          *http.Client
}

// NewClient builds a values-API client for the configured spreadsheet.
func NewClient(cfg config.SheetConfig, tokens bearerSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Client{
		baseURL:       defaultBaseURL,
		spreadsheetID: cfg.SpreadsheetID,
		apiKey:        cfg.APIKey,
		tokens:        tokens,
		http:          httpClient,
	}
}

// GetValues reads a cell range and returns the raw string grid. Missing
// trailing cells are absent from the result; callers normalise row width.
func (c *Client) GetValues(ctx context.Context, rng string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/%s/values/%s?key=%s", c.baseURL, c.spreadsheetID, url.PathEscape(rng), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, "failed to build read request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, appErrors.ErrFetch.Message)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, appErrors.Clone(appErrors.ErrFetch, fmt.Sprintf("sheet read returned status %d", resp.StatusCode))
	}

	var payload struct {
		Values [][]interface{} `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, "failed to decode sheet response")
	}

	grid := make([][]string, len(payload.Values))
	for i, row := range payload.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = stringify(cell)
		}
		grid[i] = cells
	}
	return grid, nil
}

// UpdateValues overwrites a single range. Last write wins per cell.
func (c *Client) UpdateValues(ctx context.Context, rng string, values [][]string) error {
	endpoint := fmt.Sprintf("%s/%s/values/%s?valueInputOption=USER_ENTERED", c.baseURL, c.spreadsheetID, url.PathEscape(rng))
	body := map[string]interface{}{"values": values}
	return c.write(ctx, http.MethodPut, endpoint, body)
}

// BatchUpdateValues overwrites several ranges in one request. This is the
// only multi-row write primitive; per-row loops of UpdateValues would trip
// the store's request-rate limits.
func (c *Client) BatchUpdateValues(ctx context.Context, data []ValueRange) error {
	endpoint := fmt.Sprintf("%s/%s/values:batchUpdate", c.baseURL, c.spreadsheetID)
	body := map[string]interface{}{
		"valueInputOption": "USER_ENTERED",
		"data":             data,
	}
	return c.write(ctx, http.MethodPost, endpoint, body)
}

// AppendValues appends full rows at the logical end of the table. Positions
// of the new rows are only knowable after a subsequent read.
func (c *Client) AppendValues(ctx context.Context, rng string, values [][]string) error {
	endpoint := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=USER_ENTERED", c.baseURL, c.spreadsheetID, url.PathEscape(rng))
	body := map[string]interface{}{"values": values}
	return c.write(ctx, http.MethodPost, endpoint, body)
}

func (c *Client) write(ctx context.Context, method, endpoint string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode write payload")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build write request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.NewWriteError(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return appErrors.NewWriteError(resp.StatusCode, fmt.Errorf("%s", snippet))
	}

	return nil
}

// stringify normalises non-string cells the API occasionally returns.
func stringify(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// Trim the float formatting for integral values.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
