package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/cppla/yatube/routes"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server and background workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := boot()
	if err != nil {
		return err
	}

	r := routes.SetupRouter(db, nil)

	workers, stop := context.WithCancel(context.Background())
	defer stop()

	sender := services.LogSender
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := utils.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer producer.Close()
		sender = services.KafkaSender(producer)
	}
	go services.NewOutboxRelayer(db, sender).Run(workers)

	// Start background cleanup for replaced or orphaned uploads
	utils.StartMediaCleaner(workers, db, cfg.MediaRoot,
		time.Duration(cfg.MediaCleanupMinutes)*time.Minute,
		time.Duration(cfg.MediaOrphanGraceMinutes)*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	return utils.GraceServer(":"+cfg.AppPort, r, stop)
}
