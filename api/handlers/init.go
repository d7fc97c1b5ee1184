package handlers

import (
	"github.com/itlsolutions/webmail/services"
)

type APIHandlers struct {
	Emails        *EmailsHandler
	Notifications *NotificationsHandler
}

func InitHandlers(s *services.Services) *APIHandlers {
	return &APIHandlers{
		Emails:        NewEmailsHandler(s.EmailService, s.IMAPService),
		Notifications: NewNotificationsHandler(s.EmailService),
	}
}
