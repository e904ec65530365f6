// Package email sends billing notices through Postmark.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const postmarkURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

// PaymentFailed tells a customer that a charge did not go through.
func (c *Client) PaymentFailed(ctx context.Context, to string, amount float64, currency string) error {
	link := c.baseURL + "/account/billing"
	price := formatAmount(amount, currency)
	return c.send(ctx, postmarkEmail{
		To:       to,
		Subject:  "Your selpix payment failed",
		TextBody: fmt.Sprintf("We could not charge %s for your selpix subscription.\n\nUpdate your payment method here:\n%s", price, link),
		HtmlBody: fmt.Sprintf(`<p>We could not charge %s for your selpix subscription.</p><p><a href="%s">Update your payment method</a></p>`, price, link),
		Tag:      "payment-failed",
	})
}

// PaymentReceived sends a receipt.
func (c *Client) PaymentReceived(ctx context.Context, to string, amount float64, currency string) error {
	price := formatAmount(amount, currency)
	return c.send(ctx, postmarkEmail{
		To:       to,
		Subject:  "selpix receipt",
		TextBody: fmt.Sprintf("Thanks! We received your payment of %s.", price),
		HtmlBody: fmt.Sprintf(`<p>Thanks! We received your payment of %s.</p>`, price),
		Tag:      "receipt",
	})
}

func (c *Client) send(ctx context.Context, msg postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}
	msg.From = c.fromEmail

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}

// formatAmount renders 9.9 USD as "9.90 USD" and 9900 KRW as "9900 KRW".
func formatAmount(amount float64, currency string) string {
	prec := 2
	switch currency {
	case "KRW", "JPY", "VND":
		prec = 0
	}
	return strconv.FormatFloat(amount, 'f', prec, 64) + " " + currency
}
