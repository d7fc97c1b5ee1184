package dto

type SendEmailRequest struct {
	To       []string `json:"to"`
	Cc       []string `json:"cc,omitempty"`
	Bcc      []string `json:"bcc,omitempty"`
	Subject  string   `json:"subject"`
	BodyText string   `json:"bodyText"`
	BodyHTML string   `json:"bodyHtml,omitempty"`
}

type ReplyEmailRequest struct {
	To       []string `json:"to,omitempty"`
	Cc       []string `json:"cc,omitempty"`
	Bcc      []string `json:"bcc,omitempty"`
	BodyText string   `json:"bodyText"`
	BodyHTML string   `json:"bodyHtml,omitempty"`
}

type ForwardEmailRequest struct {
	To       []string `json:"to"`
	Cc       []string `json:"cc,omitempty"`
	Bcc      []string `json:"bcc,omitempty"`
	BodyText string   `json:"bodyText"`
	BodyHTML string   `json:"bodyHtml,omitempty"`
}

type ContactSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

type ChatInquiry struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Transcript string `json:"transcript"`
}
