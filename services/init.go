package services

import (
	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/internal/logger"
	"github.com/itlsolutions/webmail/internal/repository"
	"github.com/itlsolutions/webmail/services/email"
	"github.com/itlsolutions/webmail/services/imap"
	"github.com/itlsolutions/webmail/services/smtp"
)

type Services struct {
	IMAPService  *imap.IMAPService
	EmailService *email.EmailService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) *Services {
	dialer := imap.NewDialer(cfg.IMAPConfig)
	imapService := imap.NewIMAPService(log, cfg.IMAPConfig, dialer, repos)

	sender := smtp.NewSMTPClient(cfg.SMTPConfig)
	emailService := email.NewEmailService(log, cfg.SMTPConfig, cfg.IMAPConfig, repos, sender, imapService)

	return &Services{
		IMAPService:  imapService,
		EmailService: emailService,
	}
}
