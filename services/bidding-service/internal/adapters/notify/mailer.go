package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// SendFunc matches smtp.SendMail
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPOptions configures the mailer
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer implements bids.Notifier over SMTP with HTML templates
type SMTPMailer struct {
	opts      SMTPOptions
	templates map[emailKind]*template.Template
	send      SendFunc
	logger    *slog.Logger
}

// NewSMTPMailer creates a mailer. send may be nil to use smtp.SendMail.
func NewSMTPMailer(opts SMTPOptions, send SendFunc, logger *slog.Logger) *SMTPMailer {
	if send == nil {
		send = smtp.SendMail
	}
	return &SMTPMailer{
		opts:      opts,
		templates: parseTemplates(),
		send:      send,
		logger:    logger,
	}
}

// emailData feeds the templates
type emailData struct {
	RenterName  string
	VehicleName string
	Category    string
	City        string
	ImageURL    string
	StartDate   string
	EndDate     string
	Amount      string
	OwnerName   string
	OwnerEmail  string
	BookingID   string
}

func newEmailData(bid *bids.Bid) emailData {
	return emailData{
		RenterName:  bid.Renter.Name,
		VehicleName: bid.Vehicle.Name,
		Category:    bid.Vehicle.Category,
		City:        bid.Vehicle.City,
		ImageURL:    bid.Vehicle.ImageURL,
		StartDate:   bid.StartDate.Format("02 Jan 2006"),
		EndDate:     bid.EndDate.Format("02 Jan 2006"),
		Amount:      FormatAmount(bid.Amount),
		OwnerName:   bid.Owner.Name,
		OwnerEmail:  bid.Owner.Email,
	}
}

// FormatAmount renders minor units as a decimal amount
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// NotifyBidSubmitted confirms receipt of a bid to the renter
func (m *SMTPMailer) NotifyBidSubmitted(ctx context.Context, bid *bids.Bid) error {
	return m.deliver(ctx, kindBidSubmitted, bid.Renter.Email, newEmailData(bid))
}

// NotifyBidAccepted tells the renter their bid became a booking
func (m *SMTPMailer) NotifyBidAccepted(ctx context.Context, bid *bids.Bid, booking *bids.Booking) error {
	data := newEmailData(bid)
	if booking != nil && booking.ID != uuid.Nil {
		data.BookingID = booking.ID.String()
	}
	return m.deliver(ctx, kindBidAccepted, bid.Renter.Email, data)
}

// NotifyBidRejected tells the renter their bid was rejected
func (m *SMTPMailer) NotifyBidRejected(ctx context.Context, bid *bids.Bid) error {
	return m.deliver(ctx, kindBidRejected, bid.Renter.Email, newEmailData(bid))
}

func (m *SMTPMailer) deliver(ctx context.Context, kind emailKind, to string, data emailData) error {
	if to == "" {
		return fmt.Errorf("no recipient for %s email", kind)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.render(kind, to, data)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.opts.Host, strconv.Itoa(m.opts.Port))
	var a smtp.Auth
	if m.opts.Username != "" {
		a = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
	}

	// smtp.SendMail has no context support; run it aside so ctx can bound the wait
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.send(addr, a, m.opts.From, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("sending %s email: %w", kind, ctx.Err())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send %s email: %w", kind, err)
		}
	}

	m.logger.Info("Email sent", "kind", string(kind), "to", to)
	return nil
}

// render builds the full RFC 5322 message
func (m *SMTPMailer) render(kind emailKind, to string, data emailData) ([]byte, error) {
	tmpl, ok := m.templates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown email kind %q", kind)
	}

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", data); err != nil {
		return nil, fmt.Errorf("failed to render %s email: %w", kind, err)
	}

	headers := []string{
		"From: " + m.opts.From,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subjects[kind]),
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	var msg bytes.Buffer
	msg.WriteString(strings.Join(headers, "\r\n"))
	msg.WriteString("\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
