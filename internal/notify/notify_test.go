package notify

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/mail.v2"

	"github.com/shanehull/annwatch/internal/ai"
	"github.com/shanehull/annwatch/internal/config"
	"github.com/shanehull/annwatch/internal/errs"
	"github.com/shanehull/annwatch/internal/logger"
	"github.com/shanehull/annwatch/internal/types"
)

func sampleData() NotificationData {
	return NotificationData{
		Matches: []types.Match{
			{
				Announcement:  types.Announcement{Title: "Araştırma Görevlisi <Kadro> Alınacaktır", Link: "https://www.maltepe.edu.tr/d/1?a=1&b=2"},
				KeywordsFound: []string{"alınacaktır"},
			},
			{
				Announcement:  types.Announcement{Title: "Öğretim Üyesi Alınacaktır"},
				KeywordsFound: []string{"alınacaktır"},
			},
		},
		Digest:      &ai.Digest{Summary: []string{"Two academic vacancies."}},
		GeneratedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		SourceURL:   config.DefaultSourceURL,
	}
}

func TestRender(t *testing.T) {
	msg, err := NewHTMLEmailRenderer().Render(sampleData())
	require.NoError(t, err)

	assert.Equal(t, "Yeni Duyurular: 2 eşleşme", msg.Subject)

	assert.Contains(t, msg.Text, "1. Araştırma Görevlisi <Kadro> Alınacaktır")
	assert.Contains(t, msg.Text, "URL: https://www.maltepe.edu.tr/d/1?a=1&b=2")
	assert.Contains(t, msg.Text, "• Two academic vacancies.")
	assert.Contains(t, msg.Text, "Checked: 01 Mar 2026 09:30")

	assert.Contains(t, msg.HTML, "Araştırma Görevlisi &lt;Kadro&gt; Alınacaktır")
	assert.Contains(t, msg.HTML, `href="https://www.maltepe.edu.tr/d/1?a=1&amp;b=2"`)
	assert.Contains(t, msg.HTML, "Two academic vacancies.")
	assert.NotContains(t, msg.HTML, "<Kadro>")

	assert.True(t, strings.HasPrefix(msg.Chat, "🔔 <b>Yeni Duyurular: 2 eşleşme</b>"))
	assert.Contains(t, msg.Chat, `<a href="https://www.maltepe.edu.tr/d/1?a=1&amp;b=2">Araştırma Görevlisi &lt;Kadro&gt; Alınacaktır</a>`)
	assert.Contains(t, msg.Chat, "• Öğretim Üyesi Alınacaktır")
}

func TestRenderSingleMatchSubject(t *testing.T) {
	data := sampleData()
	data.Matches = data.Matches[1:]
	data.Digest = nil

	msg, err := NewHTMLEmailRenderer().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Yeni Duyuru: Öğretim Üyesi Alınacaktır", msg.Subject)
	assert.NotContains(t, msg.Text, "AI SUMMARY")
}

func TestRenderChatTruncates(t *testing.T) {
	data := sampleData()
	long := strings.Repeat("Uzun başlık ", 60)
	for i := 0; i < 20; i++ {
		data.Matches = append(data.Matches, types.Match{Announcement: types.Announcement{Title: long}})
	}

	chat := renderChat(data)
	assert.LessOrEqual(t, len([]rune(chat)), telegramLimit)
	assert.True(t, strings.HasSuffix(chat, "…"))
	assert.NotContains(t, chat, "<b>")
}

func TestRenderChatTruncatesEscapedText(t *testing.T) {
	data := sampleData()
	title := `Ar-Ge & İnovasyon "Proje" Çağrısı'na 'Başvurular' & <Ek> Duyurusu'nun Güncellenmesi`
	for i := 0; i < 60; i++ {
		data.Matches = append(data.Matches, types.Match{Announcement: types.Announcement{Title: title}})
	}

	chat := renderChat(data)
	assert.LessOrEqual(t, len([]rune(chat)), telegramLimit)
	assert.True(t, strings.HasSuffix(chat, "…"))
	assert.NotContains(t, chat, "<Ek>")

	// Every ampersand left must start a complete entity.
	entity := regexp.MustCompile(`^&(amp|lt|gt|#39|#34);`)
	for i := strings.Index(chat, "&"); i >= 0; {
		assert.Regexp(t, entity, chat[i:])
		next := strings.Index(chat[i+1:], "&")
		if next < 0 {
			break
		}
		i += next + 1
	}
}

func TestTruncateEscaped(t *testing.T) {
	assert.Equal(t, "kısa", truncateEscaped("kısa", 10))
	assert.Equal(t, "ab…", truncateEscaped("ab&#39;cd", 6))
	assert.Equal(t, "ab&#39;…", truncateEscaped("ab&#39;cdef", 8))
}

type fakeSender struct {
	name string
	err  error

	mu   sync.Mutex
	sent []*RenderedMessage
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(_ context.Context, msg *RenderedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func newTestDispatcher(senders ...Sender) *Dispatcher {
	d := NewDispatcher(senders...)
	d.log = logger.Nop()
	return d
}

func TestDispatcherFansOut(t *testing.T) {
	ok := &fakeSender{name: "ok"}
	broken := &fakeSender{name: "broken", err: errors.New("smtp: 535 auth failed")}

	err := newTestDispatcher(ok, broken).Notify(context.Background(), sampleData())

	require.Error(t, err)
	assert.Equal(t, errs.KindNotify, errs.KindOf(err))
	assert.Contains(t, err.Error(), "535 auth failed")
	assert.Len(t, ok.sent, 1, "a failing channel must not stop the others")
	assert.Len(t, broken.sent, 1)
	assert.Equal(t, ok.sent[0], broken.sent[0], "rendered once for all channels")
}

func TestDispatcherSkipsEmpty(t *testing.T) {
	s := &fakeSender{name: "s"}
	d := newTestDispatcher(s)

	data := sampleData()
	data.Matches = nil
	require.NoError(t, d.Notify(context.Background(), data))
	assert.Empty(t, s.sent)

	assert.False(t, newTestDispatcher().Enabled())
	assert.NoError(t, newTestDispatcher().Notify(context.Background(), sampleData()))
}

func TestEmailSenderMessage(t *testing.T) {
	s := NewEmailSender(config.EmailConfig{
		Enabled:   true,
		FromEmail: "bot@example.com",
		ToEmail:   "me@example.com",
	})

	var captured bytes.Buffer
	s.dial = func(_ context.Context, m *gomail.Message) error {
		_, err := m.WriteTo(&captured)
		return err
	}

	msg, err := NewHTMLEmailRenderer().Render(sampleData())
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), msg))

	raw := captured.String()
	assert.Contains(t, raw, "From: bot@example.com")
	assert.Contains(t, raw, "To: me@example.com")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/html")
}

func TestEmailSenderDisabled(t *testing.T) {
	s := NewEmailSender(config.EmailConfig{})
	s.dial = func(context.Context, *gomail.Message) error {
		t.Fatal("disabled sender must not dial")
		return nil
	}
	assert.NoError(t, s.Send(context.Background(), &RenderedMessage{Subject: "x"}))
}

func TestTelegramSender(t *testing.T) {
	var (
		mu   sync.Mutex
		form map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"annwatch","username":"annwatch_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_ = r.ParseForm()
			mu.Lock()
			form = map[string]string{
				"chat_id":    r.PostForm.Get("chat_id"),
				"text":       r.PostForm.Get("text"),
				"parse_mode": r.PostForm.Get("parse_mode"),
			}
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	defer srv.Close()

	s, err := newTelegramSender("123:abc", 42, srv.URL+"/bot%s/%s")
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), &RenderedMessage{Subject: "s", Chat: "🔔 <b>Yeni</b>"}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "42", form["chat_id"])
	assert.Equal(t, "🔔 <b>Yeni</b>", form["text"])
	assert.Equal(t, "HTML", form["parse_mode"])
}

func TestSendersFromConfig(t *testing.T) {
	cfg := config.Default()
	senders, err := SendersFromConfig(cfg)
	require.NoError(t, err)
	assert.Empty(t, senders)

	cfg.Email.Enabled = true
	senders, err = SendersFromConfig(cfg)
	require.NoError(t, err)
	require.Len(t, senders, 1)
	assert.Equal(t, "email", senders[0].Name())
}

func TestReports(t *testing.T) {
	var buf bytes.Buffer
	ReportFirstRun(&buf, []types.Announcement{{Title: "A"}, {Title: "B"}}, "last_announcements.json")
	assert.Contains(t, buf.String(), "FIRST RUN: 2 ANNOUNCEMENTS")
	assert.Contains(t, buf.String(), "- A\n- B\n")
	assert.Contains(t, buf.String(), "last_announcements.json")

	buf.Reset()
	ReportNoNew(&buf, 0, []string{"alınacaktır"})
	assert.Contains(t, buf.String(), "No new announcements.")

	buf.Reset()
	ReportNoNew(&buf, 1, []string{"alınacaktır"})
	assert.Contains(t, buf.String(), "1 new announcement(s), none matching 'alınacaktır'.")

	buf.Reset()
	data := sampleData()
	ReportMatches(&buf, data.Matches, []string{"alınacaktır"}, data.Digest)
	out := buf.String()
	assert.Contains(t, out, "2 NEW ANNOUNCEMENT(S) MATCHING 'alınacaktır'")
	assert.Contains(t, out, "--- MATCH #2 ---")
	assert.Contains(t, out, "URL:      https://www.maltepe.edu.tr/d/1?a=1&b=2")
	assert.Contains(t, out, "\t- Two academic vacancies.")
}
