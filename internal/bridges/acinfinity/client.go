package acinfinity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/verdantio/grow-core/internal/controller"
	"github.com/verdantio/grow-core/internal/resilience"
)

// Vendor API endpoints, relative to the configured base URL.
const (
	loginPath       = "/api/user/login"
	devListPath     = "/api/user/devInfoListAll"
	devSettingPath  = "/api/dev/getDevSetting"
	updatePortPath  = "/api/dev/updateDevPort"
	tokenHeaderName = "token"
)

// vendorOKCode is the response code the cloud API uses for success.
const vendorOKCode = 200

// Client speaks the AC Infinity cloud JSON API.
//
// It is a thin request/decode layer; timeouts, retries, and the circuit
// breaker are applied by the caller through the resilience wrapper, which
// supplies the context deadlines this client honours.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a vendor API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// deviceInfo is one entry of the devInfoListAll response.
type deviceInfo struct {
	DevID           string `json:"devId"`
	DevName         string `json:"devName"`
	DevType         int    `json:"devType"`
	FirmwareVersion string `json:"firmwareVersion"`
	Online          int    `json:"online"`
}

// portSetting is one per-port entry of the getDevSetting response.
// The same payload mixes sensor-probe ports and controllable ports,
// discriminated by PortType.
type portSetting struct {
	PortID     int    `json:"portId"`
	PortType   int    `json:"portType"`
	DevType    int    `json:"devType"`
	PortName   string `json:"portName"`
	SupportDim int    `json:"supportDim"`
	OnOff      int    `json:"onOff"`
	Speak      int    `json:"speak"`
	Surplus    int    `json:"surplus"`
}

// sensorEntry is one ambient sensor value of the getDevSetting response.
type sensorEntry struct {
	SensorType int     `json:"sensorType"`
	Value      float64 `json:"value"`
}

// devSettings is the decoded getDevSetting data payload.
type devSettings struct {
	PortData   []portSetting `json:"portData"`
	SensorData []sensorEntry `json:"sensorData"`
}

type vendorEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// post sends a JSON POST and decodes the vendor envelope.
//
// HTTP 5xx is marked transient for the retry layer; 401/403 map to
// ErrAuthenticationFailed; any other non-2xx status or a non-OK vendor
// code maps to ErrVendorRejected with the vendor message verbatim.
func (c *Client) post(ctx context.Context, path, token string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(tokenHeaderName, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, resilience.Transient(fmt.Errorf("POST %s: vendor returned %s", path, resp.Status))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: POST %s returned %s", controller.ErrAuthenticationFailed, path, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: POST %s returned %s", controller.ErrVendorRejected, path, resp.Status)
	}

	var env vendorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	if env.Code != vendorOKCode {
		return nil, fmt.Errorf("%w: code %d: %s", controller.ErrVendorRejected, env.Code, env.Msg)
	}

	return env.Data, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	data, err := c.post(ctx, loginPath, "", map[string]string{
		"appEmail":    email,
		"appPassword": password,
	})
	if err != nil {
		// A vendor-level rejection on the login endpoint means the
		// credentials are bad, not that the request was malformed.
		if errors.Is(err, controller.ErrVendorRejected) {
			return "", fmt.Errorf("%w: %v", controller.ErrAuthenticationFailed, err)
		}
		return "", err
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decoding login payload: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: login succeeded but no token returned", controller.ErrAuthenticationFailed)
	}
	return out.Token, nil
}

// DeviceList returns every device on the authenticated account.
func (c *Client) DeviceList(ctx context.Context, token string) ([]deviceInfo, error) {
	data, err := c.post(ctx, devListPath, token, map[string]string{})
	if err != nil {
		return nil, err
	}

	var devices []deviceInfo
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("decoding device list: %w", err)
	}
	return devices, nil
}

// DeviceSettings returns the mixed sensor/port payload for one device.
func (c *Client) DeviceSettings(ctx context.Context, token, devID string) (*devSettings, error) {
	data, err := c.post(ctx, devSettingPath, token, map[string]string{"devId": devID})
	if err != nil {
		return nil, err
	}

	var settings devSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decoding device settings: %w", err)
	}
	return &settings, nil
}

// UpdatePort sets a port's power level on the vendor's native 0-10 scale.
func (c *Client) UpdatePort(ctx context.Context, token, devID string, portID, power int) error {
	_, err := c.post(ctx, updatePortPath, token, map[string]any{
		"devId":  devID,
		"portId": portID,
		"power":  power,
	})
	return err
}
