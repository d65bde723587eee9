// Package httpclient provides basic http functions
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteFileInfo contains information
type RemoteFileInfo struct {
	ETag                  string
	LastModifiedTimestamp int64
	Path                  string
}

// Client retrieves remote documents, adding Headers to every request
type Client struct {
	HttpClient *http.Client
	Headers    map[string]string
}

// NewClient creates Client with timeout applied to every request
func NewClient(timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		HttpClient: &http.Client{Timeout: timeout},
		Headers:    headers,
	}
}

func (c *Client) newRequest(ctx context.Context, method string, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	for name, value := range c.Headers {
		req.Header.Set(name, value)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method string, url string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, url)
	if err != nil {
		return nil, err
	}
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, &StatusError{Url: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// StatusError is returned when the remote server responds with a non-success status
type StatusError struct {
	Url        string
	StatusCode int
	Status     string
}

func (s *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed: %s", s.Url, s.Status)
}

// Temporary returns true when retrying the request may succeed
func (s *StatusError) Temporary() bool {
	return s.StatusCode == http.StatusTooManyRequests || s.StatusCode >= 500
}

// GetRemoteFileInfo retrieves ETag and last modified timestamp from url using a HEAD request
func (c *Client) GetRemoteFileInfo(ctx context.Context, url string) (RemoteFileInfo, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return RemoteFileInfo{}, err
	}
	_ = resp.Body.Close()
	return getRemoteFileInfo(url, resp), nil
}

func getRemoteFileInfo(url string, resp *http.Response) RemoteFileInfo {
	result := RemoteFileInfo{
		Path: url,
	}
	result.ETag = resp.Header.Get("ETag")

	lastModifiedString := resp.Header.Get("Last-Modified")

	if len(lastModifiedString) > 0 {
		parsedTime, err := time.Parse(time.RFC1123, lastModifiedString)
		if err == nil {
			result.LastModifiedTimestamp = parsedTime.Unix()
		}
	}
	return result

}

// IsDifferent returns true if other describes a different version of the file
func (df *RemoteFileInfo) IsDifferent(other RemoteFileInfo) bool {
	if len(df.ETag) > 0 {
		return df.ETag != other.ETag
	}
	if df.LastModifiedTimestamp == 0 {
		//nothing to compare, assume changed
		return true
	}
	return df.LastModifiedTimestamp != other.LastModifiedTimestamp
}

// RetrievedDocument contains the body of a remote document and information about its version
type RetrievedDocument struct {
	RemoteFileInfo RemoteFileInfo
	Body           []byte
	RetrievedAt    time.Time
}

// Retrieve reads the whole body of url
func (c *Client) Retrieve(ctx context.Context, url string) (*RetrievedDocument, error) {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return &RetrievedDocument{
		RemoteFileInfo: getRemoteFileInfo(url, resp),
		Body:           body,
		RetrievedAt:    time.Now(),
	}, nil
}
