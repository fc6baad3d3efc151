// Package e2e drives a running donorhub server with Gherkin scenarios.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	BaseURL string
	client  *http.Client

	lastStatus int
	lastBody   map[string]interface{}

	accessToken string
	saved       map[string]string
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		saved:   map[string]string{},
	}
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PUT(path string, body interface{}) error {
	return tc.do(http.MethodPut, path, body)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.doWithHeaders(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body interface{}) error {
	return tc.doWithHeaders(method, path, body, nil)
}

func (tc *TestContext) doWithHeaders(method, path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &tc.lastBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (tc *TestContext) GetLastStatus() int { return tc.lastStatus }

// GetResponseField resolves a dotted path such as "data.donor.id" against
// the last JSON response. Numeric segments index into arrays.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var cur interface{} = tc.lastBody
	for _, part := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in response", field)
			}
			cur = v
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, field)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return cur, nil
}

func (tc *TestContext) GetAccessToken() string { return tc.accessToken }

func (tc *TestContext) SetAccessToken(token string) { tc.accessToken = token }

func (tc *TestContext) Save(name, value string) { tc.saved[name] = value }

// Expand replaces {name} placeholders with values stored via Save.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.saved {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
