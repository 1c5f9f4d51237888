// Package queryengine реализует клиента к семантическому движку,
// исполняющему запросы элементов дашбордов и генерирующему
// рекомендации. Сам движок — внешний сервис, его устройство
// этому модулю неизвестно.
package queryengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/magabrotheeeer/insight-console/internal/models"
)

// Client — HTTP-клиент движка. Временные ошибки (сетевые сбои,
// ответы 5xx) повторяются ограниченное число раз с удваивающейся
// задержкой.
type Client struct {
	apiURL     string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewClient создает нового клиента движка.
func NewClient(apiURL string) *Client {
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Rows []map[string]any `json:"rows"`
}

type recommendRequest struct {
	DashboardUID string   `json:"dashboard_uid"`
	Queries      []string `json:"queries"`
}

type recommendResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

// RunQuery исполняет запрос элемента дашборда и возвращает строки результата.
func (c *Client) RunQuery(ctx context.Context, query string) ([]map[string]any, error) {
	const op = "queryengine.RunQuery"
	var resp queryResponse
	if err := c.do(ctx, "/v1/query", queryRequest{Query: query}, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Rows, nil
}

// Recommend запрашивает у движка рекомендации для дашборда
// на основе запросов его текущих элементов.
func (c *Client) Recommend(ctx context.Context, dashboardUID string, queries []string) ([]models.Recommendation, error) {
	const op = "queryengine.Recommend"
	var resp recommendResponse
	req := recommendRequest{DashboardUID: dashboardUID, Queries: queries}
	if err := c.do(ctx, "/v1/recommend", req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Recommendations, nil
}

// do выполняет POST с повторами на временных сбоях.
func (c *Client) do(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	payload := buf.Bytes()

	var lastErr error
	delay := c.baseDelay
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("engine returned %s", resp.Status)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return fmt.Errorf("engine returned %s", resp.Status)
		}

		err = json.NewDecoder(resp.Body).Decode(result)
		_ = resp.Body.Close()
		return err
	}
	return lastErr
}
