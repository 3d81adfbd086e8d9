package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultEmail receives messages when no form endpoint is configured.
const DefaultEmail = "SIAKOU2006@gmail.com"

var (
	// ErrInvalidMessage wraps every validation failure.
	ErrInvalidMessage = errors.New("invalid contact message")
	// ErrNoEndpoint is returned by Send when no form endpoint is configured.
	ErrNoEndpoint = errors.New("no form endpoint configured")
)

// Message is a contact form submission.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Validate checks that name, email and message are present and that email is an address.
func (m Message) Validate() error {
	var missing []string
	if strings.TrimSpace(m.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(m.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(m.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidMessage, strings.Join(missing, ", "))
	}
	addr, err := mail.ParseAddress(m.Email)
	if err != nil || addr.Address != strings.TrimSpace(m.Email) {
		return fmt.Errorf("%w: malformed email %q", ErrInvalidMessage, m.Email)
	}
	return nil
}

// Client relays contact messages to a form endpoint.
type Client struct {
	endpoint string
	email    string
	hc       *http.Client
}

// ClientOptions configures the contact client.
type ClientOptions struct {
	endpoint   string
	email      string
	httpClient *http.Client
}

// ClientOption applies a configuration to ClientOptions.
type ClientOption func(*ClientOptions)

// WithEndpoint sets the form endpoint messages are POSTed to.
func WithEndpoint(endpoint string) ClientOption {
	return func(o *ClientOptions) { o.endpoint = endpoint }
}

// WithFallbackEmail sets the address used for mailto links and error text.
func WithFallbackEmail(email string) ClientOption {
	return func(o *ClientOptions) { o.email = email }
}

// WithHTTPClient sets the HTTP client; its transport is wrapped for tracing.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *ClientOptions) { o.httpClient = hc }
}

// NewClient constructs a contact Client with the given options.
func NewClient(opts ...ClientOption) *Client {
	o := ClientOptions{email: DefaultEmail}
	for _, opt := range opts {
		opt(&o)
	}
	hc := &http.Client{Timeout: 15 * time.Second}
	if o.httpClient != nil {
		hc = &http.Client{Timeout: o.httpClient.Timeout, Transport: o.httpClient.Transport}
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(base)
	return &Client{endpoint: o.endpoint, email: o.email, hc: hc}
}

// HasEndpoint reports whether Send can relay messages.
func (c *Client) HasEndpoint() bool { return c.endpoint != "" }

// Email returns the fallback address.
func (c *Client) Email() string { return c.email }

// Send validates m and POSTs it as JSON to the form endpoint.
func (c *Client) Send(ctx context.Context, m Message) error {
	tracer := otel.Tracer("portfolio/contact")
	ctx, span := tracer.Start(ctx, "Client.Send")
	defer span.End()

	if err := m.Validate(); err != nil {
		return err
	}
	if c.endpoint == "" {
		return ErrNoEndpoint
	}
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	span.SetAttributes(attribute.Int("status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("form endpoint returned %s", resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "Contact message relayed", "status", resp.StatusCode)
	return nil
}

// MailtoURI builds a mailto link that pre-fills the message for the visitor's mail client.
func (c *Client) MailtoURI(m Message) string {
	body := "Name: " + m.Name + "\nEmail: " + m.Email + "\n\n" + m.Message
	return "mailto:" + c.email + "?subject=" + EncodeURIComponent(m.Subject) + "&body=" + EncodeURIComponent(body)
}

// ErrorMessage is the text shown to visitors when a message could not be relayed.
func (c *Client) ErrorMessage() string {
	return "Unable to send the message. Try by email: " + c.email
}

var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent percent-encodes s leaving only A-Z a-z 0-9 - _ . ! ~ * ' ( ) unescaped.
func EncodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}
