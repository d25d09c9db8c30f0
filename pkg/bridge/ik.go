// Package bridge connects a limb controller to the services that run beside it:
// the inverse-kinematics solver and the feedback stream.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/reach"
	"github.com/gwillem/armctl/pkg/robot"
)

// Default timeouts for IK requests.
const (
	DefaultIKTimeout      = 5 * time.Second
	DefaultConnectTimeout = 2 * time.Second
)

// IKRequest is the body posted to the solver.
type IKRequest struct {
	Limb robot.Limb `json:"limb"`
	Pose pose.Pose  `json:"pose"`
}

// IKResponse is the solver's answer. Valid is false when no solution exists.
type IKResponse struct {
	Valid  bool      `json:"valid"`
	Joints []float64 `json:"joints"`
}

// IKClient asks an HTTP IK service for joint angles.
type IKClient struct {
	baseURL string
	client  *http.Client
}

// NewIKClient creates a client for the service at baseURL.
func NewIKClient(baseURL string) *IKClient {
	return &IKClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: DefaultIKTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   DefaultConnectTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Solve posts target to /ik/<limb>. It returns reach.ErrNoSolution when the
// service reports the pose as unreachable.
func (c *IKClient) Solve(ctx context.Context, limb robot.Limb, target pose.Pose) (robot.JointAngles, error) {
	body, err := json.Marshal(IKRequest{Limb: limb, Pose: target})
	if err != nil {
		return nil, fmt.Errorf("encode ik request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ik/"+string(limb), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ik request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ik service: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out IKResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ik response: %w", err)
	}
	if !out.Valid {
		return nil, reach.ErrNoSolution
	}

	angles := robot.JointAngles(out.Joints)
	if err := angles.Validate(); err != nil {
		return nil, fmt.Errorf("ik response: %w", err)
	}
	return angles, nil
}
