package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Service handles email composition and sending
type Service struct {
	sender      Sender
	fromAddress string
	fromName    string
	templates   map[string]*template.Template
}

// NewService parses the embedded templates and creates an email service.
// Each page template is parsed together with the shared layout.
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	pages, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read email templates: %w", err)
	}

	funcs := template.FuncMap{"money": formatCents}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := page.Name()
		if "templates/"+name == layoutFile {
			continue
		}
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, layoutFile, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Service{
		sender:      sender,
		fromAddress: fromAddress,
		fromName:    fromName,
		templates:   templates,
	}, nil
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(ctx context.Context, data OrderConfirmationEmail) error {
	if err := s.send(ctx, data.CustomerEmail, data); err != nil {
		return fmt.Errorf("failed to send order confirmation email: %w", err)
	}
	return nil
}

// SendOrderStatus sends an order status update email
func (s *Service) SendOrderStatus(ctx context.Context, data OrderStatusEmail) error {
	if err := s.send(ctx, data.CustomerEmail, data); err != nil {
		return fmt.Errorf("failed to send order status email: %w", err)
	}
	return nil
}

func (s *Service) send(ctx context.Context, to string, data EmailTemplate) error {
	if !strings.Contains(to, "@") {
		return ErrInvalidToAddress
	}

	htmlBody, textBody, err := s.renderTemplate(data.TemplateName(), data)
	if err != nil {
		return err
	}

	from := s.fromAddress
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}

	_, err = s.sender.Send(ctx, &Email{
		To:       []string{to},
		From:     from,
		Subject:  data.Subject(),
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	return err
}

// Helper method to render a template
func (s *Service) renderTemplate(templateName string, data any) (string, string, error) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return "", "", ErrTemplateNotFound(templateName)
	}

	var htmlBuf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&htmlBuf, "email_layout", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	htmlBody := htmlBuf.String()
	return htmlBody, generatePlainText(htmlBody), nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// generatePlainText creates a simple plain text version from HTML
func generatePlainText(html string) string {
	text := html

	// The document head carries no readable content.
	if start := strings.Index(text, "<head>"); start >= 0 {
		if end := strings.Index(text, "</head>"); end > start {
			text = text[:start] + text[end+len("</head>"):]
		}
	}

	for _, tag := range []string{"<br>", "<br/>", "<br />", "</div>", "</tr>"} {
		text = strings.ReplaceAll(text, tag, "\n")
	}
	for _, tag := range []string{"</p>", "</h1>", "</h2>", "</h3>"} {
		text = strings.ReplaceAll(text, tag, "\n\n")
	}
	text = strings.ReplaceAll(text, "</td>", " ")

	for strings.Contains(text, "<") && strings.Contains(text, ">") {
		start := strings.Index(text, "<")
		end := strings.Index(text, ">")
		if start >= 0 && end > start {
			text = text[:start] + text[end+1:]
		} else {
			break
		}
	}

	text = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#34;", "\"",
		"&#39;", "'",
	).Replace(text)

	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
