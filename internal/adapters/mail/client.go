// Package mail fetches order-confirmation emails over IMAP.
//
// The client owns the session; callers only see extractor.Message values.
// Two access patterns are supported: a bounded fetch of the most recent
// messages (backfill) and an IDLE-based wait for new mail (incremental).
package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	gomail "github.com/emersion/go-message/mail"

	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
)

// Config holds IMAP connection settings.
type Config struct {
	Address  string // host:port, implicit TLS
	Username string
	Password string
	Mailbox  string
}

// Client is an IMAP mail source.
type Client struct {
	cfg    Config
	logger *slog.Logger
	imap   *imapclient.Client

	// newMail receives a token whenever the server reports new messages
	// in the selected mailbox.
	newMail chan struct{}
}

// Dial connects, authenticates, and selects the configured mailbox.
func Dial(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}

	c := &Client{
		cfg:     cfg,
		logger:  logger,
		newMail: make(chan struct{}, 1),
	}

	options := &imapclient.Options{
		UnilateralDataHandler: &imapclient.UnilateralDataHandler{
			Mailbox: func(data *imapclient.UnilateralDataMailbox) {
				if data.NumMessages != nil {
					select {
					case c.newMail <- struct{}{}:
					default:
					}
				}
			},
		},
	}

	conn, err := imapclient.DialTLS(cfg.Address, options)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.Address, err)
	}

	if err := conn.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if _, err := conn.Select(cfg.Mailbox, nil).Wait(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to select %s: %w", cfg.Mailbox, err)
	}

	c.imap = conn
	logger.Debug("connected to mail server", "address", cfg.Address, "mailbox", cfg.Mailbox)

	return c, nil
}

// Close logs out and closes the connection.
func (c *Client) Close() error {
	if err := c.imap.Logout().Wait(); err != nil {
		return c.imap.Close()
	}
	return c.imap.Close()
}

// FetchRecent returns up to limit of the newest messages in the mailbox,
// each with envelope data and its HTML body. Messages whose body cannot be
// decoded are logged and excluded; one broken message never fails the batch.
func (c *Client) FetchRecent(ctx context.Context, limit int) ([]extractor.Message, error) {
	status, err := c.imap.Select(c.cfg.Mailbox, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", c.cfg.Mailbox, err)
	}

	total := status.NumMessages
	if total == 0 {
		return nil, nil
	}

	lo := uint32(1)
	if limit > 0 && total > uint32(limit) {
		lo = total - uint32(limit) + 1
	}

	var seqSet imap.SeqSet
	seqSet.AddRange(lo, total)

	fetchOptions := &imap.FetchOptions{
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{{}},
	}

	buffers, err := c.imap.Fetch(seqSet, fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	messages := make([]extractor.Message, 0, len(buffers))
	for _, buf := range buffers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := toMessage(buf)
		if err != nil {
			subject := ""
			if buf.Envelope != nil {
				subject = buf.Envelope.Subject
			}
			c.logger.Warn("failed to decode message",
				"subject", subject,
				"error", err,
			)
			continue
		}
		messages = append(messages, msg)
	}

	c.logger.Debug("fetched messages", "count", len(messages), "mailbox", c.cfg.Mailbox)

	return messages, nil
}

// WaitForMail blocks until the server reports new mail, the poll interval
// elapses, or the context is cancelled. Returns true when new mail arrived.
func (c *Client) WaitForMail(ctx context.Context, pollInterval time.Duration) (bool, error) {
	idle, err := c.imap.Idle()
	if err != nil {
		return false, fmt.Errorf("failed to start idle: %w", err)
	}

	defer func() {
		_ = idle.Close()
		_ = idle.Wait()
	}()

	select {
	case <-c.newMail:
		return true, nil
	case <-time.After(pollInterval):
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// toMessage converts a fetched buffer into an extractor message.
func toMessage(buf *imapclient.FetchMessageBuffer) (extractor.Message, error) {
	var msg extractor.Message

	if buf.Envelope == nil {
		return msg, fmt.Errorf("missing envelope")
	}
	if len(buf.Envelope.From) > 0 {
		msg.From = buf.Envelope.From[0].Addr()
	}
	msg.Subject = buf.Envelope.Subject
	msg.ReceivedAt = buf.InternalDate
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = buf.Envelope.Date
	}

	var raw []byte
	for _, section := range buf.BodySection {
		raw = section.Bytes
		break
	}
	if len(raw) == 0 {
		return msg, fmt.Errorf("missing body")
	}

	html, err := htmlPart(raw)
	if err != nil {
		return msg, err
	}
	msg.HTMLBody = html

	return msg, nil
}

// htmlPart walks the MIME structure and returns the first text/html part.
// Plain-text-only messages yield an empty body, which the extractor skips.
func htmlPart(raw []byte) (string, error) {
	reader, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to read mime structure: %w", err)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read mime part: %w", err)
		}

		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		if contentType != "text/html" {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read html part: %w", err)
		}
		return string(body), nil
	}

	return "", nil
}
