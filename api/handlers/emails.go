package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/itlsolutions/webmail/dto"
	"github.com/itlsolutions/webmail/interfaces"
	"github.com/itlsolutions/webmail/services/email"
	"github.com/itlsolutions/webmail/services/imap"
)

type EmailsHandler struct {
	emailService *email.EmailService
	imapService  *imap.IMAPService
}

func NewEmailsHandler(emailService *email.EmailService, imapService *imap.IMAPService) *EmailsHandler {
	return &EmailsHandler{
		emailService: emailService,
		imapService:  imapService,
	}
}

// List returns mirrored emails, newest first. Supports folder, unread,
// starred, free text search, and pagination query params.
func (h *EmailsHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		filter := interfaces.EmailFilter{
			Folder:     c.DefaultQuery("folder", "INBOX"),
			UnreadOnly: c.Query("unread") == "true",
			Starred:    c.Query("starred") == "true",
			Search:     c.Query("q"),
			Limit:      limit,
			Offset:     offset,
		}
		if c.Query("folder") == "all" {
			filter.Folder = ""
		}

		emails, total, err := h.emailService.ListEmails(ctx, filter)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"emails": emails,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	}
}

func (h *EmailsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.emailService.GetEmail(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *EmailsHandler) Thread() gin.HandlerFunc {
	return func(c *gin.Context) {
		emails, err := h.emailService.GetThread(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"emails": emails})
	}
}

func (h *EmailsHandler) UnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := h.emailService.UnreadCount(c.Request.Context(), c.Query("folder"))
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

func (h *EmailsHandler) Send() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req dto.SendEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sent, err := h.emailService.SendEmail(ctx, &req)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sent)
	}
}

func (h *EmailsHandler) Reply() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req dto.ReplyEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sent, err := h.emailService.ReplyEmail(ctx, c.Param("id"), &req)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sent)
	}
}

func (h *EmailsHandler) Forward() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req dto.ForwardEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sent, err := h.emailService.ForwardEmail(ctx, c.Param("id"), &req)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sent)
	}
}

func (h *EmailsHandler) SetRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			IsRead bool `json:"isRead"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := h.imapService.MarkRead(c.Request.Context(), c.Param("id"), req.IsRead); err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *EmailsHandler) SetStarred() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			IsStarred bool `json:"isStarred"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := h.imapService.MarkStarred(c.Request.Context(), c.Param("id"), req.IsStarred); err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *EmailsHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.imapService.DeleteEmail(c.Request.Context(), c.Param("id")); err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// DownloadAttachment streams the stored attachment content
func (h *EmailsHandler) DownloadAttachment() gin.HandlerFunc {
	return func(c *gin.Context) {
		attachment, content, err := h.emailService.GetAttachment(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+attachment.Filename+`"`)
		c.Data(http.StatusOK, attachment.ContentType, content)
	}
}

// Sync triggers an incremental mailbox sync. An empty folder param syncs all
// configured folders.
func (h *EmailsHandler) Sync(folders []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if folder := c.Param("folder"); folder != "" {
			count, err := h.imapService.SyncFolder(ctx, folder)
			if err != nil {
				respondWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"syncedCount": count, "folder": folder})
			return
		}

		count, err := h.imapService.SyncAll(ctx, folders)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"syncedCount": count})
	}
}
