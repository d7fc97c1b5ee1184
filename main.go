package main

import (
	"context"
	"log"
	"os"

	"github.com/opentracing/opentracing-go"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/internal/database"
	"github.com/itlsolutions/webmail/internal/logger"
	"github.com/itlsolutions/webmail/internal/repository"
	"github.com/itlsolutions/webmail/internal/tracing"
	"github.com/itlsolutions/webmail/server"
	"github.com/itlsolutions/webmail/services"
)

func main() {
	app := &cli.App{
		Name:  "webmail",
		Usage: "IMAP mailbox mirror and webmail backend",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(c *cli.Context) error {
					_, db, err := initialize()
					if err != nil {
						return err
					}
					if err := database.MigrateDatabase(db); err != nil {
						return err
					}
					log.Println("Database migration completed successfully")
					return nil
				},
			},
			{
				Name:  "server",
				Usage: "Start the application server",
				Action: func(c *cli.Context) error {
					cfg, db, err := initialize()
					if err != nil {
						return err
					}

					log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
					log.Println("Webmail service starting up...")

					srv, err := server.NewServer(cfg, db)
					if err != nil {
						return err
					}
					return srv.Run()
				},
			},
			{
				Name:  "sync",
				Usage: "Run a one-off mailbox sync and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "folder",
						Usage: "Sync a single folder instead of all configured folders",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, db, err := initialize()
					if err != nil {
						return err
					}

					appLogger := logger.NewAppLogger(cfg.Logger)
					appLogger.InitLogger()

					tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
					if err != nil {
						return err
					}
					defer closer.Close()
					opentracing.SetGlobalTracer(tracer)

					repos := repository.InitRepositories(db, cfg.StorageConfig)
					svcs := services.InitServices(cfg, appLogger, repos)

					ctx := context.Background()
					if folder := c.String("folder"); folder != "" {
						count, err := svcs.IMAPService.SyncFolder(ctx, folder)
						if err != nil {
							return err
						}
						log.Printf("Synced %d new messages from %s", count, folder)
						return nil
					}

					count, err := svcs.IMAPService.SyncAll(ctx, cfg.AppConfig.SyncFolders)
					if err != nil {
						return err
					}
					log.Printf("Synced %d new messages", count)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func initialize() (*config.Config, *gorm.DB, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
