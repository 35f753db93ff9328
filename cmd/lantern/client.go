package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lanternhq/lantern/internal/search"
)

// client is a thin JSON client for the lantern HTTP APIs.
type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	return &client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (c *client) do(method, path string, body []byte, out interface{}) error {
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Code != "" {
			return &ae
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (c *client) search(req search.Request) (*search.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var res search.Response
	if err := c.do(http.MethodPost, "/search", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *client) createSchema(manifest []byte) error {
	return c.do(http.MethodPut, "/schema", manifest, nil)
}

func (c *client) getSchema(name string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(http.MethodGet, "/schema/"+name, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *client) addDocument(schemaName string, doc []byte) error {
	return c.do(http.MethodPost, "/doc/"+schemaName, doc, nil)
}

func (c *client) flush(schemaName string) error {
	return c.do(http.MethodPost, "/flush/"+schemaName, nil, nil)
}
