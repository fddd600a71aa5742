package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/celeparty/ticketops/internal/config"
	"github.com/wneessen/go-mail"
	"github.com/yeqown/go-qrcode"
	"golang.org/x/sync/errgroup"
)

// Mailer renders and sends e-ticket emails over SMTP, one QR code
// attachment per issued ticket.
type Mailer struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewMailer(cfg *config.Config) (*Mailer, error) {
	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		port = 587
	}
	client, err := mail.NewClient(
		cfg.SMTPHost,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTPUsername),
		mail.WithPassword(cfg.SMTPPassword),
	)
	if err != nil {
		return nil, err
	}
	return &Mailer{client: client, from: cfg.MailFrom, fromName: cfg.MailFromName}, nil
}

func (m *Mailer) Send(ctx context.Context, job EmailJob) error {
	dir, err := os.MkdirTemp("", "eticket-"+job.OrderID+"-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	paths := make([]string, len(job.TicketCodes))
	g, _ := errgroup.WithContext(ctx)
	for i, code := range job.TicketCodes {
		i, code := i, code
		g.Go(func() error {
			qrc, err := qrcode.New(code)
			if err != nil {
				return err
			}
			p := filepath.Join(dir, fmt.Sprintf("%s.jpeg", code))
			if err := qrc.Save(p); err != nil {
				return err
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return err
	}
	if err := msg.To(job.RecipientEmail); err != nil {
		return err
	}
	msg.Subject(fmt.Sprintf("Your Celeparty e-tickets for order %s", job.OrderID))
	msg.SetBodyString(mail.TypeTextPlain, body(job))
	for _, p := range paths {
		msg.AttachFile(p)
	}

	return m.client.DialAndSendWithContext(ctx, msg)
}

func body(job EmailJob) string {
	var b strings.Builder
	name := job.RecipientName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Your payment for order %s is confirmed. Your tickets:\n\n", job.OrderID)
	for _, code := range job.TicketCodes {
		fmt.Fprintf(&b, "  - %s\n", code)
	}
	b.WriteString("\nPresent the attached QR codes at the venue.\n\nCeleparty\n")
	return b.String()
}
