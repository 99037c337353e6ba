package notify

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
)

// telegramLimit is the maximum message length accepted by the Bot API.
const telegramLimit = 4096

// HTMLEmailRenderer renders notifications as HTML emails with a plain text fallback.
type HTMLEmailRenderer struct {
	tmpl *template.Template
}

// NewHTMLEmailRenderer creates a renderer with the default email template.
func NewHTMLEmailRenderer() *HTMLEmailRenderer {
	t := template.Must(template.New("email").Parse(emailHTMLTemplate))
	return &HTMLEmailRenderer{tmpl: t}
}

// Render produces the email bodies and the Telegram variant.
func (r *HTMLEmailRenderer) Render(data NotificationData) (*RenderedMessage, error) {
	if data.Subject == "" {
		data.Subject = defaultSubject(data)
	}

	var htmlBuf bytes.Buffer
	if err := r.tmpl.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &RenderedMessage{
		Subject: data.Subject,
		Text:    renderPlainText(data),
		HTML:    htmlBuf.String(),
		Chat:    renderChat(data),
	}, nil
}

func defaultSubject(data NotificationData) string {
	if len(data.Matches) == 1 {
		return "Yeni Duyuru: " + data.Matches[0].Title
	}
	return fmt.Sprintf("Yeni Duyurular: %d eşleşme", len(data.Matches))
}

// renderPlainText produces a readable plain text version for email clients that don't support HTML.
func renderPlainText(data NotificationData) string {
	var sb strings.Builder

	sb.WriteString(data.Subject + "\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	for i, m := range data.Matches {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, m.Title))
		if m.Link != "" {
			sb.WriteString(fmt.Sprintf("   URL: %s\n", m.Link))
		}
		if len(m.KeywordsFound) > 0 {
			sb.WriteString(fmt.Sprintf("   Keywords: %s\n", strings.Join(m.KeywordsFound, ", ")))
		}
	}
	sb.WriteString("\n")

	if data.Digest != nil && len(data.Digest.Summary) > 0 {
		sb.WriteString("AI SUMMARY\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for _, s := range data.Digest.Summary {
			sb.WriteString(fmt.Sprintf("• %s\n", s))
		}
		sb.WriteString("\n")
	}

	if data.SourceURL != "" {
		sb.WriteString(fmt.Sprintf("Source: %s\n", data.SourceURL))
	}
	if !data.GeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Checked: %s\n", data.GeneratedAt.Format("02 Jan 2006 15:04")))
	}

	return sb.String()
}

// renderChat produces Telegram HTML. Only the tags the Bot API accepts are used.
func renderChat(data NotificationData) string {
	var sb strings.Builder

	sb.WriteString("🔔 <b>" + html.EscapeString(data.Subject) + "</b>\n")

	for _, m := range data.Matches {
		title := html.EscapeString(m.Title)
		if m.Link != "" {
			title = fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(m.Link), title)
		}
		sb.WriteString("\n• " + title)
	}

	if data.Digest != nil && len(data.Digest.Summary) > 0 {
		sb.WriteString("\n\n<i>" + html.EscapeString(strings.Join(data.Digest.Summary, " ")) + "</i>")
	}

	out := sb.String()
	if len([]rune(out)) > telegramLimit {
		// Cutting may split a tag, so fall back to escaped plain text.
		out = truncateEscaped(html.EscapeString(renderPlainText(data)), telegramLimit)
	}
	return out
}

// truncateEscaped cuts already escaped text to at most n runes including the
// trailing ellipsis, without splitting an entity such as &#39;.
func truncateEscaped(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	r = r[:n-1]
	for i := len(r) - 1; i >= 0 && i >= len(r)-8; i-- {
		if r[i] == ';' {
			break
		}
		if r[i] == '&' {
			r = r[:i]
			break
		}
	}
	return string(r) + "…"
}
