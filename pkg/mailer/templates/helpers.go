package templates

import (
	"strings"
	"time"

	"github.com/sittichok/user-service/config"
)

// Option pattern
type Option func(*EmailData)

func WithRole(role string) Option { return func(d *EmailData) { d.Role = role } }

func WithJoinedAt(t time.Time) Option {
	return func(d *EmailData) {
		if t.IsZero() {
			return
		}
		utc := t.UTC()
		d.JoinedAt = utc
		d.JoinedAtText = utc.Format("02 January 2006, 15:04")
	}
}

// NewWelcomeData fills the common fields from config, then applies opts.
func NewWelcomeData(cfg *config.Config, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:  strings.TrimSpace(name),
		Email: email,

		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		AppName:        cfg.AppName,

		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
		PrivacyURL:     cfg.PrivacyURL,
		UnsubscribeURL: cfg.UnsubscribeURL,
		LoginURL:       cfg.LoginURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}
