package daemon

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/version"
	"golang.org/x/net/http2"
)

// RemoteClient implements Client by calling the daemon's HTTP API over a Unix socket.
// Requests use HTTP/2 without TLS (h2c), matching the daemon's server.
type RemoteClient struct {
	httpClient *http.Client
	socketPath string
}

// NewRemoteClient creates a new RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) (*RemoteClient, error) {
	return &RemoteClient{
		httpClient: &http.Client{
			Transport: newTransport(socketPath),
			Timeout:   10 * time.Second,
		},
		socketPath: socketPath,
	}, nil
}

// newTransport dials the unix socket and speaks cleartext HTTP/2.
func newTransport(socketPath string) *http2.Transport {
	return &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, _, _ string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}
}

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

func newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}

// get issues a GET and decodes a JSON response into target. Error bodies
// written by the daemon are decoded back into a ProcTrackError.
func (c *RemoteClient) get(ctx context.Context, path string, target interface{}) error {
	req, err := newRequest(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDaemonNotRunning, "failed to reach daemon").
			WithDetail("socket", c.socketPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var pe errors.ProcTrackError
		if err := json.NewDecoder(resp.Body).Decode(&pe); err == nil && pe.Code != "" {
			return &pe
		}
		return errors.New(errors.ErrCodeInternal, fmt.Sprintf("daemon returned status %d", resp.StatusCode)).
			WithDetail("path", path)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Status returns the daemon's tracking status.
func (c *RemoteClient) Status(ctx context.Context) (*Status, error) {
	var state struct {
		Status Status `json:"status"`
	}
	if err := c.get(ctx, "/api/state", &state); err != nil {
		return nil, err
	}
	return &state.Status, nil
}

// Processes returns the daemon's latest snapshot.
func (c *RemoteClient) Processes(ctx context.Context) (models.Snapshot, error) {
	var snapshot models.Snapshot
	if err := c.get(ctx, "/api/processes", &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Statistics asks the daemon to aggregate statistics.
func (c *RemoteClient) Statistics(ctx context.Context, q StatisticsQuery) ([]models.GroupStatistics, error) {
	var result []models.GroupStatistics
	if err := c.get(ctx, "/api/statistics"+encodeQuery(q), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func encodeQuery(q StatisticsQuery) string {
	v := url.Values{}
	if q.Group != "" {
		v.Set("group", q.Group)
	}
	if q.Filter.Query != "" {
		v.Set("query", q.Filter.Query)
	}
	if q.Filter.From != 0 {
		v.Set("from", strconv.FormatInt(q.Filter.From, 10))
	}
	if q.Filter.To != 0 {
		v.Set("to", strconv.FormatInt(q.Filter.To, 10))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// GetConfig returns the daemon's running configuration.
func (c *RemoteClient) GetConfig(ctx context.Context) (*RunningConfig, error) {
	var cfg RunningConfig
	if err := c.get(ctx, "/api/config", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := newRequest(ctx, "/health")
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// StreamState subscribes to real-time updates via Server-Sent Events (SSE).
// Returns a channel that receives events. The channel is closed when the context is cancelled
// or the connection is lost.
func (c *RemoteClient) StreamState(ctx context.Context) (<-chan Event, error) {
	req, err := newRequest(ctx, "/api/stream")
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// Use a separate client with no timeout for streaming
	streamTransport := newTransport(c.socketPath)
	streamClient := &http.Client{
		Transport: streamTransport,
		Timeout:   0,
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDaemonNotRunning, "failed to connect to stream").
			WithDetail("socket", c.socketPath)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	ch := make(chan Event, 10)

	go func() {
		defer resp.Body.Close()
		defer close(ch)
		defer streamTransport.CloseIdleConnections()

		scanner := bufio.NewScanner(resp.Body)
		// Statistics events carry every session with its title history.
		buf := make([]byte, 0, 1024*1024)
		scanner.Buffer(buf, 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()

			// Comments, blank separators and "event:" lines carry nothing
			// the data line does not.
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var ev Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				continue // Skip malformed data
			}

			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
