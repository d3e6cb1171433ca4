package email

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeSMTP accepts plain SMTP sessions and records the DATA of each message.
type fakeSMTP struct {
	ln       net.Listener
	mu       sync.Mutex
	messages []string
}

func newFakeSMTP(t *testing.T) *fakeSMTP {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeSMTP{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })
	go f.serve()
	return f
}

func (f *fakeSMTP) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeSMTP) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeSMTP) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	r := bufio.NewReader(conn)
	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(cmd, "DATA"):
			reply("354 go ahead")
			var sb strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				sb.WriteString(l)
			}
			f.mu.Lock()
			f.messages = append(f.messages, sb.String())
			f.mu.Unlock()
			reply("250 queued")
		case strings.HasPrefix(cmd, "QUIT"):
			reply("221 bye")
			return
		default:
			reply("250 ok")
		}
	}
}

func TestService(t *testing.T) {
	srv := newFakeSMTP(t)
	c := Config{Host: "127.0.0.1", Port: srv.port(), PerMinute: 60}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	s := NewService(c)
	subject, body := PasswordEmail(LocaleEN, "Joe", "abc12345")
	if err := s.Send(t.Context(), "master@dundie.com", "joe@doe.com", subject, body); err != nil {
		t.Fatal(err)
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.messages) != 1 {
		t.Fatalf("got %d messages", len(srv.messages))
	}
	msg := srv.messages[0]
	for _, want := range []string{"From: master@dundie.com", "To: joe@doe.com", "Subject: Your dundie password", "abc12345"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message misses %q:\n%s", want, msg)
		}
	}
}

func TestServiceUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	s := NewService(Config{Host: "127.0.0.1", Port: port, Timeout: time.Second})
	if err := s.Send(t.Context(), "a@b.com", "c@d.com", "s", "b"); err == nil {
		t.Error("expected error")
	}
}

func TestConfig(t *testing.T) {
	c := Config{}
	if c.Enabled() {
		t.Error("empty config must be disabled")
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Port != 25 || c.Timeout != 5*time.Second {
		t.Errorf("defaults = %+v", c)
	}
	if err := (&Config{Username: "u"}).Validate(); err == nil {
		t.Error("username without password must fail")
	}
	if err := (&Config{PerMinute: -1}).Validate(); err == nil {
		t.Error("negative rate must fail")
	}
}

func TestPasswordEmail(t *testing.T) {
	tests := []struct {
		locale  Locale
		subject string
	}{
		{LocaleEN, "Your dundie password"},
		{LocalePT, "Sua senha dundie"},
		{ParseLocale("xx"), "Your dundie password"},
	}
	for _, tc := range tests {
		t.Run(string(tc.locale), func(t *testing.T) {
			subject, body := PasswordEmail(tc.locale, "Jim", "pw"+strconv.Itoa(42))
			if subject != tc.subject {
				t.Errorf("subject = %q", subject)
			}
			if !strings.Contains(body, "Jim") || !strings.Contains(body, "pw42") {
				t.Errorf("body = %q", body)
			}
		})
	}
}

func TestLogSender(t *testing.T) {
	if err := (LogSender{}).Send(t.Context(), "a@b.com", "c@d.com", "s", "secret"); err != nil {
		t.Error(err)
	}
}
