package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pthm/openwire"
	"golang.org/x/net/html"
)

// UpdatePayload is the body of an update request.
type UpdatePayload struct {
	ID           string          `json:"id"`
	Component    string          `json:"component"`
	Calls        []openwire.Call `json:"calls,omitempty"`
	InitialState any             `json:"initial_state,omitempty"`
	FormKey      string          `json:"form_key,omitempty"`
}

// Transport sends an update and returns the payload to patch.
type Transport interface {
	SendUpdate(ctx context.Context, p *UpdatePayload) (*openwire.Payload, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, p *UpdatePayload) (*openwire.Payload, error)

// SendUpdate calls f(ctx, p).
func (f TransportFunc) SendUpdate(ctx context.Context, p *UpdatePayload) (*openwire.Payload, error) {
	return f(ctx, p)
}

// HTTPTransport posts updates to the update controllers as JSON.
type HTTPTransport struct {
	// BaseURL is prefixed to the update path, e.g. "http://localhost:8080".
	BaseURL string
	// Client defaults to http.DefaultClient.
	Client *http.Client
	// FormKey supplies the session form key. An empty key is not sent.
	FormKey func() string
	// PagePath is the path of the page hosting the components. Pages under
	// /admin post to the admin controller.
	PagePath string
	// Header is added to every request.
	Header http.Header
}

// URL returns the endpoint updates are posted to.
func (t *HTTPTransport) URL() string {
	path := openwire.UpdatePath
	if strings.HasPrefix(t.PagePath, "/admin") {
		path = openwire.AdminUpdatePath
	}
	return strings.TrimSuffix(t.BaseURL, "/") + path
}

// SendUpdate posts p. A non-200 answer is returned as an error carrying the
// controller's message.
func (t *HTTPTransport) SendUpdate(ctx context.Context, p *UpdatePayload) (*openwire.Payload, error) {
	if t.FormKey != nil {
		if key := t.FormKey(); key != "" {
			p.FormKey = key
		}
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("client: encode update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(openwire.HeaderRequest, "true")

	hc := t.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: send update: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return nil, &UpdateError{Status: resp.StatusCode, Message: e.Error}
		}
		return nil, &UpdateError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var payload openwire.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return &payload, nil
}

// UpdateError is a rejected update.
type UpdateError struct {
	Status  int
	Message string
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("client: update rejected (%d): %s", e.Status, e.Message)
}

// DocumentFormKey returns the value of the first form_key input in doc.
func DocumentFormKey(doc *html.Node) string {
	n := Find(doc, func(n *html.Node) bool {
		name, _ := Attr(n, "name")
		return name == "form_key"
	})
	v, _ := Attr(n, "value")
	return v
}
