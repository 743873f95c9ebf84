package contact

import (
	"context"

	"github.com/skartik/commerce-api/internal/mailer"
)

// Submission is a storefront contact form entry.
type Submission struct {
	Email   string `json:"email" binding:"required,email"`
	Name    string `json:"name" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
	Locale  string `json:"locale"`
}

type ContactServicer interface {
	Submit(ctx context.Context, sub *Submission)
}

type Service struct {
	publisher *mailer.Publisher
}

func NewService(publisher *mailer.Publisher) *Service {
	return &Service{publisher: publisher}
}

// Submit forwards the form to the support inbox via the email queue.
func (s *Service) Submit(ctx context.Context, sub *Submission) {
	s.publisher.Publish(ctx, &mailer.EmailEvent{
		Type:    mailer.EventContactForm,
		Locale:  mailer.Locale(sub.Locale),
		Email:   sub.Email,
		Name:    sub.Name,
		Subject: sub.Subject,
		Message: sub.Message,
	})
}
