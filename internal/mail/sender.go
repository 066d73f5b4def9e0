package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"text/template"
	"time"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// Sender delivers transactional mail over SMTP. A zero host disables
// delivery, which keeps worker tests and local runs quiet.
type Sender struct {
	host      string
	addr      string
	from      string
	logger    *slog.Logger
	templates *template.Template
}

// NewSender constructs a sender against the configured SMTP relay.
func NewSender(host string, port int, from string, logger *slog.Logger) (*Sender, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("mail: parse templates: %w", err)
	}
	s := &Sender{host: host, from: from, logger: logger, templates: templates}
	if host != "" {
		s.addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return s, nil
}

// TeamInvite carries everything the invitation email template needs.
type TeamInvite struct {
	To          string
	TeamName    string
	InviterName string
	AcceptURL   string
	ExpiresAt   time.Time
}

// SendTeamInvite delivers a roster invitation.
func (s *Sender) SendTeamInvite(ctx context.Context, msg TeamInvite) error {
	return s.send(ctx, msg.To, "You're invited to join "+msg.TeamName, "invite.txt", msg)
}

// GameReminder carries everything the reminder email template needs.
type GameReminder struct {
	To       string
	TeamName string
	Opponent string
	Location string
	StartsAt time.Time
}

// SendGameReminder delivers an upcoming-game reminder.
func (s *Sender) SendGameReminder(ctx context.Context, msg GameReminder) error {
	return s.send(ctx, msg.To, "Upcoming game: "+msg.TeamName+" vs "+msg.Opponent, "reminder.txt", msg)
}

func (s *Sender) send(ctx context.Context, to, subject, tmpl string, data any) error {
	if s == nil || s.addr == "" {
		if s != nil && s.logger != nil {
			s.logger.Info("mail delivery disabled", slog.String("to", to), slog.String("subject", subject))
		}
		return nil
	}
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("mail: render %s: %w", tmpl, err)
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", s.addr, err)
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer client.Close()
	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("mail: from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("mail: rcpt %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: data: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		w.Close()
		return fmt.Errorf("mail: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: close: %w", err)
	}
	return client.Quit()
}
