package mail

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type smtpExchange struct {
	from string
	rcpt string
	data string
}

// startFakeSMTP serves one connection with just enough of the protocol for
// net/smtp and reports the recorded exchange on the returned channel.
func startFakeSMTP(t *testing.T) (host string, port int, exchanges <-chan smtpExchange) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan smtpExchange, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var ex smtpExchange
		fmt.Fprintf(conn, "220 fake ESMTP\r\n")
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				fmt.Fprintf(conn, "250 fake\r\n")
			case strings.HasPrefix(line, "MAIL FROM:"):
				ex.from = line
				fmt.Fprintf(conn, "250 OK\r\n")
			case strings.HasPrefix(line, "RCPT TO:"):
				ex.rcpt = line
				fmt.Fprintf(conn, "250 OK\r\n")
			case line == "DATA":
				fmt.Fprintf(conn, "354 send it\r\n")
				var body strings.Builder
				for sc.Scan() {
					if sc.Text() == "." {
						break
					}
					body.WriteString(sc.Text())
					body.WriteString("\n")
				}
				ex.data = body.String()
				fmt.Fprintf(conn, "250 OK\r\n")
			case line == "QUIT":
				ch <- ex
				fmt.Fprintf(conn, "221 bye\r\n")
				return
			default:
				fmt.Fprintf(conn, "250 OK\r\n")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, ch
}

func TestSendGameReminderDeliversOverSMTP(t *testing.T) {
	host, port, exchanges := startFakeSMTP(t)

	s, err := NewSender(host, port, "noreply@openleague.example", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	msg := GameReminder{
		To:       "casey@example.com",
		TeamName: "Thunder",
		Opponent: "Lightning",
		Location: "Field 1",
		StartsAt: time.Date(2026, 6, 13, 18, 30, 0, 0, time.UTC),
	}
	require.NoError(t, s.SendGameReminder(context.Background(), msg))

	ex := <-exchanges
	assert.Contains(t, ex.from, "noreply@openleague.example")
	assert.Contains(t, ex.rcpt, "casey@example.com")
	assert.Contains(t, ex.data, "To: casey@example.com")
	assert.Contains(t, ex.data, "Subject: Upcoming game: Thunder vs Lightning")
	assert.Contains(t, ex.data, "Thunder plays Lightning on Saturday, 13 June at 6:30 PM")
	assert.Contains(t, ex.data, "Location: Field 1")
}

func TestDisabledSenderSkipsDelivery(t *testing.T) {
	s, err := NewSender("", 0, "noreply@openleague.example", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// No relay to dial; a nil error means the send was dropped, not attempted.
	assert.NoError(t, s.SendTeamInvite(context.Background(), TeamInvite{To: "casey@example.com"}))
	assert.NoError(t, s.SendGameReminder(context.Background(), GameReminder{To: "casey@example.com"}))
}

func TestInviteTemplateRendersAcceptLink(t *testing.T) {
	s, err := NewSender("", 0, "noreply@openleague.example", nil)
	require.NoError(t, err)

	var out bytes.Buffer
	err = s.templates.ExecuteTemplate(&out, "invite.txt", TeamInvite{
		To:          "player@example.com",
		TeamName:    "Thunder",
		InviterName: "Casey",
		AcceptURL:   "https://league.example.com/invites/tok-abc123",
		ExpiresAt:   time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	body := out.String()
	assert.Contains(t, body, "Casey has invited you to join Thunder")
	assert.Contains(t, body, "https://league.example.com/invites/tok-abc123")
	assert.Contains(t, body, "expires on Friday, 31 July 2026")
}

func TestReminderTemplateOmitsEmptyLocation(t *testing.T) {
	s, err := NewSender("", 0, "noreply@openleague.example", nil)
	require.NoError(t, err)

	var out bytes.Buffer
	err = s.templates.ExecuteTemplate(&out, "reminder.txt", GameReminder{
		TeamName: "Thunder",
		Opponent: "Lightning",
		StartsAt: time.Date(2026, 6, 13, 18, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Location:")
}
