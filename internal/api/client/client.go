// Package client is the HTTP client for the ForestGuard API, used by
// the CLI.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/forestguard/internal/engine"
	"github.com/forestguard/internal/models"
)

type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

func NewClient() (*Client, error) {
	baseURL := os.Getenv("FORESTGUARD_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	userID := os.Getenv("FORESTGUARD_USER")
	if userID == "" {
		return nil, fmt.Errorf("FORESTGUARD_USER environment variable is not set")
	}

	return &Client{
		baseURL: baseURL,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (c *Client) ListPredictions(area, riskLevel, keyword string) ([]models.Prediction, error) {
	query := url.Values{}
	if area != "" {
		query.Set("area", area)
	}
	if riskLevel != "" {
		query.Set("risk_level", riskLevel)
	}
	if keyword != "" {
		query.Set("keyword", keyword)
	}

	var predictions []models.Prediction
	if err := c.get("/api/v1/predictions?"+query.Encode(), &predictions); err != nil {
		return nil, err
	}
	return predictions, nil
}

func (c *Client) GetPrediction(id string) (*models.Prediction, error) {
	var p models.Prediction
	if err := c.get(fmt.Sprintf("/api/v1/predictions/%s", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GeneratePrediction(model, pestID, area string, factors models.Factors) (*models.Prediction, error) {
	req := map[string]interface{}{
		"model":       model,
		"pest_id":     pestID,
		"target_area": area,
		"factors":     factors,
	}
	var p models.Prediction
	if err := c.post("/api/v1/predictions/generate", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePrediction(id string) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/v1/predictions/%s", id), nil, nil)
}

func (c *Client) TriggerAlert(predictionID, audience, instructions string) (*models.Alert, error) {
	req := map[string]string{
		"target_audience": audience,
		"instructions":    instructions,
	}
	var a models.Alert
	if err := c.post(fmt.Sprintf("/api/v1/predictions/%s/trigger", predictionID), req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) ListAlerts(status, level string) ([]models.Alert, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if level != "" {
		query.Set("level", level)
	}

	var alerts []models.Alert
	if err := c.get("/api/v1/alerts?"+query.Encode(), &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *Client) AcknowledgeAlert(alertID string) error {
	return c.do(http.MethodPut, fmt.Sprintf("/api/v1/alerts/%s/acknowledge", alertID), nil, nil)
}

func (c *Client) HandleAlert(alertID, note string) error {
	data := map[string]string{"note": note}
	return c.do(http.MethodPut, fmt.Sprintf("/api/v1/alerts/%s/handle", alertID), data, nil)
}

func (c *Client) ListRules() ([]models.AlertRule, error) {
	var rules []models.AlertRule
	if err := c.get("/api/v1/rules", &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (c *Client) EnableRule(id string) error {
	return c.do(http.MethodPut, fmt.Sprintf("/api/v1/rules/%s/enable", id), nil, nil)
}

func (c *Client) DisableRule(id string) error {
	return c.do(http.MethodPut, fmt.Sprintf("/api/v1/rules/%s/disable", id), nil, nil)
}

// ExportRules streams the rule set as JSON into a local file.
func (c *Client) ExportRules(output string) error {
	resp, err := c.doRequest(http.MethodGet, "/api/v1/export/rules", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %v", err)
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// ImportRules uploads a rule set, replacing rules with matching ids.
func (c *Client) ImportRules(rules []models.AlertRule) (int, error) {
	var resp struct {
		Imported int `json:"imported"`
	}
	if err := c.post("/api/v1/operations/import-rules", rules, &resp); err != nil {
		return 0, err
	}
	return resp.Imported, nil
}

func (c *Client) Stats() (*engine.Stats, error) {
	var st engine.Stats
	if err := c.get("/api/v1/stats", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ExportAlerts streams the alert export into a local file.
func (c *Client) ExportAlerts(format, output string) error {
	resp, err := c.doRequest(http.MethodGet, "/api/v1/export/alerts?format="+url.QueryEscape(format), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %v", err)
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

func (c *Client) get(endpoint string, v interface{}) error {
	return c.do(http.MethodGet, endpoint, nil, v)
}

func (c *Client) post(endpoint string, data, v interface{}) error {
	return c.do(http.MethodPost, endpoint, data, v)
}

func (c *Client) do(method, endpoint string, data, v interface{}) error {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %v", err)
		}
		body = bytes.NewReader(jsonData)
	}

	resp, err := c.doRequest(method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if v != nil {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *Client) doRequest(method, endpoint string, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %v", err)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %v", err)
	}
	u.Path = path.Join(u.Path, parsed.Path)
	u.RawQuery = parsed.RawQuery

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("X-User-ID", c.userID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("API error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return resp, nil
}
