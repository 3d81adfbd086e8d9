package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func validMessage() Message {
	return Message{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Subject: "Hello there",
		Message: "Let's build something.",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Message)
		wantErr bool
	}{
		{"valid", func(*Message) {}, false},
		{"empty subject allowed", func(m *Message) { m.Subject = "" }, false},
		{"missing name", func(m *Message) { m.Name = "  " }, true},
		{"missing email", func(m *Message) { m.Email = "" }, true},
		{"missing message", func(m *Message) { m.Message = "\n" }, true},
		{"malformed email", func(m *Message) { m.Email = "not-an-email" }, true},
		{"display name rejected", func(m *Message) { m.Email = "Ada <ada@example.com>" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := validMessage()
			tc.mutate(&m)
			err := m.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("error %v does not wrap ErrInvalidMessage", err)
			}
		})
	}
}

func TestSend(t *testing.T) {
	var got Message
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL))
	if err := c.Send(context.Background(), validMessage()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != validMessage() {
		t.Errorf("posted %+v", got)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
}

func TestSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL))
	if err := c.Send(context.Background(), validMessage()); err == nil {
		t.Fatal("expected error for 422")
	}
}

func TestSendWithoutEndpoint(t *testing.T) {
	c := NewClient()
	if c.HasEndpoint() {
		t.Fatal("HasEndpoint = true")
	}
	if err := c.Send(context.Background(), validMessage()); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("Send = %v, want ErrNoEndpoint", err)
	}
	m := validMessage()
	m.Email = ""
	if err := c.Send(context.Background(), m); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("Send(invalid) = %v, want ErrInvalidMessage", err)
	}
}

func TestMailtoURI(t *testing.T) {
	c := NewClient()
	got := c.MailtoURI(validMessage())
	want := "mailto:SIAKOU2006@gmail.com?subject=Hello%20there" +
		"&body=Name%3A%20Ada%20Lovelace%0AEmail%3A%20ada%40example.com%0A%0ALet's%20build%20something."
	if got != want {
		t.Errorf("MailtoURI =\n%s\nwant\n%s", got, want)
	}

	c = NewClient(WithFallbackEmail("me@example.org"))
	if !strings.HasPrefix(c.MailtoURI(Message{}), "mailto:me@example.org?subject=&body=") {
		t.Errorf("custom fallback not used: %s", c.MailtoURI(Message{}))
	}
}

func TestEncodeURIComponent(t *testing.T) {
	cases := map[string]string{
		"a b":        "a%20b",
		"a+b":        "a%2Bb",
		"(x)*!~'-_.": "(x)*!~'-_.",
		"é&=?/#":     "%C3%A9%26%3D%3F%2F%23",
	}
	for in, want := range cases {
		if got := EncodeURIComponent(in); got != want {
			t.Errorf("EncodeURIComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestErrorMessageNamesFallbackEmail(t *testing.T) {
	c := NewClient(WithFallbackEmail("me@example.org"))
	if !strings.Contains(c.ErrorMessage(), "me@example.org") {
		t.Errorf("ErrorMessage = %q", c.ErrorMessage())
	}
}
