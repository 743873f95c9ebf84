package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/skartik/commerce-api/pkg/errors"
)

// RenderedEmail is a subject line plus HTML body ready for the transport.
type RenderedEmail struct {
	Subject string
	HTML    string
}

// Renderer produces localized email content for an event type.
type Renderer interface {
	Render(eventType EventType, locale Locale, data interface{}) (RenderedEmail, error)
}

type templateSet struct {
	subject string
	body    string
}

// templateRenderer renders from an in-memory template table. Locales
// without a translation fall back to English rather than failing the send.
type templateRenderer struct {
	templates map[EventType]map[Locale]templateSet
}

func NewTemplateRenderer() Renderer {
	return &templateRenderer{templates: defaultTemplates}
}

func (r *templateRenderer) Render(eventType EventType, locale Locale, data interface{}) (RenderedEmail, error) {
	byLocale, ok := r.templates[eventType]
	if !ok {
		return RenderedEmail{}, errors.Permanent("no template for event type", fmt.Errorf("type %q", eventType))
	}

	set, ok := byLocale[locale]
	if !ok {
		set, ok = byLocale[LocaleEN]
		if !ok {
			return RenderedEmail{}, errors.Permanent("no template for locale", fmt.Errorf("type %q locale %q", eventType, locale))
		}
	}

	subject, err := render("subject", set.subject, data)
	if err != nil {
		return RenderedEmail{}, err
	}
	body, err := render("body", set.body, data)
	if err != nil {
		return RenderedEmail{}, err
	}

	return RenderedEmail{Subject: subject, HTML: body}, nil
}

func render(name, text string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("invalid template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
