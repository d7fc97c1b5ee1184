package config

import (
	"github.com/itlsolutions/webmail/internal/errors"
	"github.com/itlsolutions/webmail/internal/logger"
	"github.com/itlsolutions/webmail/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11000"`
	APIKey      string `env:"API_KEY,required"`
	SyncFolders []string `env:"EMAIL_SYNC_FOLDERS" envSeparator:"," envDefault:"INBOX"`
	Logger      *logger.Config
	Tracing     *tracing.JaegerConfig
}

type DatabaseConfig struct {
	Host            string `env:"WEBMAIL_POSTGRES_HOST,required"`
	Port            string `env:"WEBMAIL_POSTGRES_PORT,required"`
	User            string `env:"WEBMAIL_POSTGRES_USER,required"`
	DBName          string `env:"WEBMAIL_POSTGRES_DB_NAME,required"`
	Password        string `env:"WEBMAIL_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"WEBMAIL_POSTGRES_DB_MAX_CONN" envDefault:"50"`
	MaxIdleConn     int    `env:"WEBMAIL_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"WEBMAIL_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"WEBMAIL_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"WEBMAIL_POSTGRES_SSL_MODE" envDefault:"disable"`
}

// IMAPConfig holds credentials for the inbound mailbox session. The fields are
// optional at boot; Validate is called on first use and absence is a fatal
// configuration error at that point.
type IMAPConfig struct {
	Host     string `env:"IMAP_HOST"`
	Port     int    `env:"IMAP_PORT" envDefault:"993"`
	Username string `env:"IMAP_USER"`
	Password string `env:"IMAP_PASS"`
	TLS      bool   `env:"IMAP_TLS" envDefault:"true"`

	SyncBatchSize int    `env:"EMAIL_SYNC_BATCH_SIZE" envDefault:"100"`
	TrashFolder   string `env:"IMAP_TRASH_FOLDER" envDefault:"Trash"`
	SentFolder    string `env:"IMAP_SENT_FOLDER" envDefault:"Sent"`
}

func (c *IMAPConfig) Validate() error {
	if c.Host == "" || c.Username == "" || c.Password == "" {
		return errors.ErrIMAPNotConfigured
	}
	return nil
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"465"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	Secure   bool   `env:"SMTP_SECURE" envDefault:"true"`

	FromAddress string `env:"SMTP_FROM"`
	FromName    string `env:"SMTP_FROM_NAME" envDefault:"ITL Solutions"`
	// Destination inbox for contact form and chat inquiry notifications
	NotifyAddress string `env:"EMAIL_TO" envDefault:"info@itlsolutions.net"`
}

func (c *SMTPConfig) Validate() error {
	if c.Host == "" || c.Username == "" || c.Password == "" {
		return errors.ErrSMTPNotConfigured
	}
	return nil
}

func (c *SMTPConfig) IsConfigured() bool {
	return c.Validate() == nil
}

// Sender returns the From address used on outbound mail.
func (c *SMTPConfig) Sender() string {
	if c.FromAddress != "" {
		return c.FromAddress
	}
	return c.Username
}

type StorageConfig struct {
	AccountID        string `env:"STORAGE_ACCOUNT_ID"`
	AccessKeyID      string `env:"STORAGE_ACCESS_KEY_ID"`
	AccessKeySecret  string `env:"STORAGE_ACCESS_KEY_SECRET"`
	AttachmentBucket string `env:"BUCKET_NAME_EMAIL_ATTACHMENT" envDefault:"attachments"`
}

func (c *StorageConfig) IsConfigured() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != ""
}
