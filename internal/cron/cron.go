package cron

import (
	"context"
	"sync"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/internal/logger"
	"github.com/itlsolutions/webmail/internal/tracing"
	"github.com/itlsolutions/webmail/services"
)

const (
	// GroupMailSync serializes the mailbox sync jobs
	GroupMailSync = "mailsync"
)

var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupMailSync: new(sync.Mutex),
	},
}

// Config holds the cron schedules. Seconds field enabled.
type Config struct {
	CronScheduleEmailSync string `env:"CRON_SCHEDULE_EMAIL_SYNC" envDefault:"0 */2 * * * *"`
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:""`
}

type CronManager struct {
	cfg      *config.Config
	log      logger.Logger
	cron     *cronv3.Cron
	stopCh   chan struct{}
	jobIDs   map[string]cronv3.EntryID
	services *services.Services
}

func NewCronManager(cfg *config.Config, log logger.Logger, svcs *services.Services) *CronManager {
	return &CronManager{
		cfg:      cfg,
		log:      log,
		stopCh:   make(chan struct{}),
		jobIDs:   make(map[string]cronv3.EntryID),
		services: svcs,
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	var cronConfig Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	if cronConfig.CronScheduleHeartbeat != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Info("Cron heartbeat")
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	if cronConfig.CronScheduleEmailSync != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleEmailSync, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupMailSync].Lock()
			defer jobLocks.locks[GroupMailSync].Unlock()
			cm.syncMailbox()
		})
		if err != nil {
			cm.log.Fatalf("Could not add email sync cron job: %v", err)
		}
		cm.jobIDs["email_sync"] = id
		cm.log.Infof("Registered email sync job with schedule: %s", cronConfig.CronScheduleEmailSync)
	}
}

func (cm *CronManager) syncMailbox() {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.syncMailbox")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	if err := cm.cfg.IMAPConfig.Validate(); err != nil {
		cm.log.Warn("IMAP not configured, skipping scheduled sync")
		return
	}

	count, err := cm.services.IMAPService.SyncAll(ctx, cm.cfg.AppConfig.SyncFolders)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Scheduled mailbox sync finished with errors: %v", err)
	}
	if count > 0 {
		cm.log.Infof("Scheduled mailbox sync mirrored %d new messages", count)
	}
}
