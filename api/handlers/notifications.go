package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/itlsolutions/webmail/dto"
	"github.com/itlsolutions/webmail/services/email"
)

type NotificationsHandler struct {
	emailService *email.EmailService
}

func NewNotificationsHandler(emailService *email.EmailService) *NotificationsHandler {
	return &NotificationsHandler{emailService: emailService}
}

// Contact accepts a contact form submission and mails it to the admin inbox
func (h *NotificationsHandler) Contact() gin.HandlerFunc {
	return func(c *gin.Context) {
		var submission dto.ContactSubmission
		if err := c.ShouldBindJSON(&submission); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(submission.Name) == "" ||
			strings.TrimSpace(submission.Email) == "" ||
			strings.TrimSpace(submission.Message) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and message are required"})
			return
		}

		if err := h.emailService.SendContactNotification(c.Request.Context(), &submission); err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// Chat accepts a chat inquiry transcript and mails it to the admin inbox
func (h *NotificationsHandler) Chat() gin.HandlerFunc {
	return func(c *gin.Context) {
		var inquiry dto.ChatInquiry
		if err := c.ShouldBindJSON(&inquiry); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(inquiry.Email) == "" || strings.TrimSpace(inquiry.Transcript) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and transcript are required"})
			return
		}

		if err := h.emailService.SendChatNotification(c.Request.Context(), &inquiry); err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
