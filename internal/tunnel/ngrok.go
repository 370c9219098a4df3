package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Ngrok tunnels through the ngrok agent binary. Connect spawns the agent
// and polls its local inspection API until the public URL appears.
type Ngrok struct {
	Bin string
	API string

	log  *zap.SugaredLogger
	http *http.Client
	cmd  *exec.Cmd
}

var _ Tunnel = (*Ngrok)(nil)

// NewNgrok returns an ngrok tunnel using the given binary and inspection
// API address.
func NewNgrok(logger *zap.SugaredLogger, bin, api string) *Ngrok {
	return &Ngrok{
		Bin:  bin,
		API:  strings.TrimSuffix(api, "/"),
		log:  logger,
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

type tunnelList struct {
	Tunnels []struct {
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
	} `json:"tunnels"`
}

// Connect starts the agent for the given port and waits for its public
// https URL.
func (n *Ngrok) Connect(ctx context.Context, port int) (string, error) {
	if n.cmd != nil {
		return "", fmt.Errorf("tunnel already connected")
	}

	cmd := exec.CommandContext(ctx, n.Bin, "http", fmt.Sprintf("%d", port))
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start ngrok: %w", err)
	}
	n.cmd = cmd
	n.log.Debugw("ngrok started", "port", port, "pid", cmd.Process.Pid)

	deadline := time.Now().Add(30 * time.Second)
	for {
		if url, err := n.publicURL(ctx); err == nil && url != "" {
			n.log.Debugw("tunnel established", "url", url)
			return url, nil
		}

		if time.Now().After(deadline) {
			n.Disconnect()
			return "", fmt.Errorf("timed out waiting for the ngrok tunnel on port %d", port)
		}
		select {
		case <-ctx.Done():
			n.Disconnect()
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (n *Ngrok) publicURL(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.API+"/api/tunnels", nil)
	if err != nil {
		return "", err
	}
	resp, err := n.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var list tunnelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", err
	}

	for _, t := range list.Tunnels {
		if t.Proto == "https" {
			return t.PublicURL, nil
		}
	}
	// Fall back to whatever the agent exposes
	if len(list.Tunnels) > 0 {
		return list.Tunnels[0].PublicURL, nil
	}
	return "", nil
}

// Disconnect kills the agent process if one is running.
func (n *Ngrok) Disconnect() error {
	if n.cmd == nil {
		return nil
	}
	cmd := n.cmd
	n.cmd = nil

	if cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			return fmt.Errorf("stop ngrok: %w", err)
		}
		cmd.Wait()
	}
	n.log.Debug("ngrok stopped")
	return nil
}
