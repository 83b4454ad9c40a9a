// Package client is the HTTP client of the pharmacy stock API. Side-effect
// free reads retry transparently; the distribution submit never does, because
// it is not idempotent: a transport failure after the request was sent leaves
// the commit state unknown.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"medistock/m/domain"
)

// TokenSource produces a fresh bearer token for one request. It stands in for
// the external identity provider; token refresh happens behind it.
type TokenSource func(ctx context.Context) (string, error)

// APIError is a structured rejection from the server ({error, message?}).
type APIError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// ErrAmbiguousOutcome marks a distribution submit whose commit state is
// unknown. The caller must verify the distributions ledger before
// resubmitting; a blind retry risks double distribution.
var ErrAmbiguousOutcome = errors.New("distribution outcome unknown")

// Client talks to the pharmacy stock service.
type Client struct {
	baseURL string
	tokens  TokenSource
	reads   *http.Client
	submits *http.Client
}

// New builds a client for the given base URL. Reads go through a retrying
// transport; submits use a plain one.
func New(baseURL string, tokens TokenSource) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.RetryWaitMin = 200 * time.Millisecond
	retry.RetryWaitMax = 2 * time.Second
	retry.Logger = nil

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		reads:   retry.StandardClient(),
		submits: &http.Client{Timeout: 10 * time.Second},
	}
}

// MedicineCreate is the creation payload for a stock item.
type MedicineCreate struct {
	DCI           string  `json:"dci"`
	NomCommercial string  `json:"nomCommercial"`
	Stock         int64   `json:"stock"`
	DDP           string  `json:"ddp,omitempty"`
	Lot           string  `json:"lot,omitempty"`
	Cout          float64 `json:"cout"`
	PrixDeVente   float64 `json:"prixDeVente"`
}

// MedicineUpdate is a partial update: nil fields are left untouched.
type MedicineUpdate struct {
	DCI           *string  `json:"dci,omitempty"`
	NomCommercial *string  `json:"nomCommercial,omitempty"`
	Stock         *int64   `json:"stock,omitempty"`
	DDP           *string  `json:"ddp,omitempty"`
	Lot           *string  `json:"lot,omitempty"`
	Cout          *float64 `json:"cout,omitempty"`
	PrixDeVente   *float64 `json:"prixDeVente,omitempty"`
}

// Medicines returns the active inventory.
func (c *Client) Medicines(ctx context.Context) ([]domain.Medicine, error) {
	var out []domain.Medicine
	if err := c.do(ctx, c.reads, http.MethodGet, "/pharmacy/medicines", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeletedMedicines returns the soft-deleted inventory.
func (c *Client) DeletedMedicines(ctx context.Context) ([]domain.Medicine, error) {
	var out []domain.Medicine
	if err := c.do(ctx, c.reads, http.MethodGet, "/pharmacy/medicines/deleted", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMedicine adds a stock item.
func (c *Client) CreateMedicine(ctx context.Context, payload MedicineCreate) (*domain.Medicine, error) {
	var out domain.Medicine
	if err := c.do(ctx, c.submits, http.MethodPost, "/pharmacy/medicines", nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMedicine applies a partial update.
func (c *Client) UpdateMedicine(ctx context.Context, id string, payload MedicineUpdate) (*domain.Medicine, error) {
	var out domain.Medicine
	if err := c.do(ctx, c.submits, http.MethodPatch, "/pharmacy/medicines/"+url.PathEscape(id), nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SoftDeleteMedicine hides a medicine from the active views; its data and
// stock are preserved.
func (c *Client) SoftDeleteMedicine(ctx context.Context, id string) (*domain.Medicine, error) {
	var out domain.Medicine
	if err := c.do(ctx, c.submits, http.MethodDelete, "/pharmacy/medicines/"+url.PathEscape(id)+"/soft-delete", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestoreMedicine brings a soft-deleted medicine back.
func (c *Client) RestoreMedicine(ctx context.Context, id string) (*domain.RestoreResponse, error) {
	var out domain.RestoreResponse
	if err := c.do(ctx, c.submits, http.MethodPatch, "/pharmacy/medicines/"+url.PathEscape(id)+"/restore", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserByNationalID resolves a staff identity from a scanned or typed national
// id.
func (c *Client) UserByNationalID(ctx context.Context, nationalID string) (*domain.StaffUser, error) {
	query := url.Values{"nationalId": {nationalID}}
	var out domain.StaffUser
	if err := c.do(ctx, c.reads, http.MethodGet, "/users/by-national-id", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DistributionsQuery filters and paginates the distribution ledger.
type DistributionsQuery struct {
	StaffNationalID string
	MedicineID      string
	Limit           int
	Offset          int
}

// Distributions queries the append-only distribution ledger, newest first.
func (c *Client) Distributions(ctx context.Context, q DistributionsQuery) (*domain.DistributionsPage, error) {
	query := url.Values{}
	if q.StaffNationalID != "" {
		query.Set("staffNationalId", q.StaffNationalID)
	}
	if q.MedicineID != "" {
		query.Set("medicineId", q.MedicineID)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		query.Set("offset", strconv.Itoa(q.Offset))
	}

	var out domain.DistributionsPage
	if err := c.do(ctx, c.reads, http.MethodGet, "/pharmacy/distributions", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Distribute submits a cart. It is sent exactly once: if the transport fails
// after the request went out, the result wraps ErrAmbiguousOutcome and the
// caller must check the ledger instead of retrying.
func (c *Client) Distribute(ctx context.Context, req domain.DistributeRequest) (*domain.DistributeResponse, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/pharmacy/medicines/distribute", nil, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.submits.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAmbiguousOutcome, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, decodeAPIError(resp)
	}

	var out domain.DistributeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// The server answered but the payload is unreadable; the commit state
		// still has to be reconciled via the ledger.
		return nil, fmt.Errorf("%w: decode response: %v", ErrAmbiguousOutcome, err)
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	token, err := c.tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtain token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var apiErr APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	apiErr.Status = resp.StatusCode
	return &apiErr
}
