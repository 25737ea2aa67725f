//go:build integration

package containers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	ntfyImage       = "binwiederhier/ntfy"
	ntfyPort        = "80/tcp"
	ntfyPollTimeout = 10 * time.Second
)

// NtfyContainer is an ntfy server standing in for the push and SMS gateways
// reached through shoutrrr.
type NtfyContainer struct {
	container   testcontainers.Container
	addr        string
	authEnabled bool
}

// NtfyConfig selects the image tag and whether topics are deny-all by default.
type NtfyConfig struct {
	ImageTag   string
	EnableAuth bool
}

func DefaultNtfyConfig() NtfyConfig {
	return NtfyConfig{ImageTag: "latest"}
}

// NtfyMessage is one message event returned by a topic poll.
type NtfyMessage struct {
	ID      string `json:"id"`
	Topic   string `json:"topic"`
	Message string `json:"message"`
	Title   string `json:"title"`
	Time    int64  `json:"time"`
	Event   string `json:"event"`
}

// NewNtfyContainer starts an ntfy server. A nil config uses DefaultNtfyConfig.
func NewNtfyContainer(ctx context.Context, config *NtfyConfig) (*NtfyContainer, error) {
	cfg := DefaultNtfyConfig()
	if config != nil {
		cfg = *config
	}

	req := testcontainers.ContainerRequest{
		Image:        ntfyImage + ":" + cfg.ImageTag,
		ExposedPorts: []string{ntfyPort},
		Cmd:          []string{"serve", "--cache-file=/tmp/ntfy/cache.db"},
		Tmpfs:        map[string]string{"/tmp/ntfy": "rw"},
		WaitingFor:   wait.ForHTTP("/v1/health").WithPort(ntfyPort).WithStartupTimeout(30 * time.Second),
	}
	if cfg.EnableAuth {
		req.Env = map[string]string{
			"NTFY_AUTH_FILE":           "/tmp/ntfy/auth.db",
			"NTFY_AUTH_DEFAULT_ACCESS": "deny-all",
		}
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start ntfy container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get ntfy host: %w", err)
	}
	port, err := container.MappedPort(ctx, ntfyPort)
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get ntfy port: %w", err)
	}

	return &NtfyContainer{
		container:   container,
		addr:        net.JoinHostPort(host, strconv.Itoa(port.Int())),
		authEnabled: cfg.EnableAuth,
	}, nil
}

// GetHost returns host:port of the server.
func (c *NtfyContainer) GetHost(_ context.Context) string {
	return c.addr
}

// ShoutrrrURL returns the shoutrrr URL publishing to topic. user may be nil.
func (c *NtfyContainer) ShoutrrrURL(topic string, user *url.Userinfo) string {
	u := &url.URL{
		Scheme:   "ntfy",
		User:     user,
		Host:     c.addr,
		Path:     "/" + topic,
		RawQuery: "scheme=http",
	}
	return u.String()
}

// AddUser creates a user with no topic access. Requires EnableAuth.
func (c *NtfyContainer) AddUser(ctx context.Context, username, password string) error {
	return c.ntfyCLI(ctx, []string{"ntfy", "user", "add", username},
		tcexec.WithEnv([]string{"NTFY_PASSWORD=" + password}))
}

// GrantAccess grants permission ("ro", "wo" or "rw") on topic. Requires EnableAuth.
func (c *NtfyContainer) GrantAccess(ctx context.Context, username, topic, permission string) error {
	return c.ntfyCLI(ctx, []string{"ntfy", "access", username, topic, permission})
}

func (c *NtfyContainer) ntfyCLI(ctx context.Context, cmd []string, opts ...tcexec.ProcessOption) error {
	if !c.authEnabled {
		return fmt.Errorf("%s: authentication is not enabled", strings.Join(cmd[:3], " "))
	}
	exitCode, output, err := c.container.Exec(ctx, cmd, opts...)
	if err != nil {
		return fmt.Errorf("failed to exec %s: %w", strings.Join(cmd, " "), err)
	}
	if exitCode != 0 {
		out, _ := io.ReadAll(output)
		return fmt.Errorf("%s exited with %d: %s", strings.Join(cmd, " "), exitCode, out)
	}
	return nil
}

// PollMessages returns the cached messages on topic.
func (c *NtfyContainer) PollMessages(ctx context.Context, topic string) ([]NtfyMessage, error) {
	return c.PollMessagesWithAuth(ctx, topic, "", "")
}

// PollMessagesWithAuth is PollMessages with basic auth. An empty username
// sends no credentials.
func (c *NtfyContainer) PollMessagesWithAuth(ctx context.Context, topic, username, password string) ([]NtfyMessage, error) {
	endpoint := "http://" + c.addr + "/" + topic + "/json?poll=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	if username != "" {
		req.SetBasicAuth(username, password)
	}

	resp, err := (&http.Client{Timeout: ntfyPollTimeout}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll %s: %w", topic, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("poll %s returned %d: %s", topic, resp.StatusCode, body)
	}

	// One JSON object per line; keepalive and open events are skipped.
	var messages []NtfyMessage
	dec := json.NewDecoder(resp.Body)
	for {
		var msg NtfyMessage
		if err := dec.Decode(&msg); err == io.EOF {
			return messages, nil
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode ntfy message: %w", err)
		}
		if msg.Event == "" || msg.Event == "message" {
			messages = append(messages, msg)
		}
	}
}

func (c *NtfyContainer) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	return c.container.Terminate(ctx)
}
