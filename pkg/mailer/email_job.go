package mailer

import (
	"errors"

	"github.com/sittichok/user-service/config"
	"github.com/sittichok/user-service/internal/domain/entity"
	mailtpl "github.com/sittichok/user-service/pkg/mailer/templates"
)

var ErrNoRecipient = errors.New("mailer: no recipient")

// EmailJob is a rendered message ready to hand to a Sender.
type EmailJob struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// NewWelcomeJob renders the welcome template for a newly created user.
func NewWelcomeJob(cfg *config.Config, u entity.User) (EmailJob, error) {
	if u.Email == "" {
		return EmailJob{}, ErrNoRecipient
	}
	data := mailtpl.NewWelcomeData(cfg, u.Fullname, u.Email,
		mailtpl.WithRole(u.Role.String()),
		mailtpl.WithJoinedAt(u.CreatedAt),
	)
	subject, text, html, err := mailtpl.Render(mailtpl.Welcome, data)
	if err != nil {
		return EmailJob{}, err
	}
	return EmailJob{To: u.Email, Subject: subject, Text: text, HTML: html}, nil
}
