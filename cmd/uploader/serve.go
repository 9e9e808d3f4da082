package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/log"
	"github.com/devsapp/ripeness-uploader/pkg/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second // 5s

func serveCmd() *cobra.Command {
	var (
		port       string
		configFile string
		mode       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, configFile, mode)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "server listen port (default from config)")
	cmd.Flags().StringVar(&configFile, "config", defaultConfigPath, "config path")
	cmd.Flags().StringVar(&mode, "mode", "", "service work mode debug|dev|product (default from config)")
	return cmd
}

func handleSignal() {
	// Wait for interrupt signal to gracefully shutdown the server with
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")
}

func runServe(port, configFile, mode string) error {
	// init config
	if err := config.InitConfig(configFile); err != nil {
		return err
	}
	if port == "" {
		port = config.ConfigGlobal.ListenPort
	}
	if mode == "" {
		mode = config.ConfigGlobal.Mode
	}
	// init log
	log.Init(mode)
	logrus.WithFields(logrus.Fields{
		"port":         port,
		"endpointMode": config.ConfigGlobal.EndpointMode,
		"dbType":       config.ConfigGlobal.DbType,
	}).Info("uploader start")

	// init server and start
	uploader, err := server.NewUploadServer(port, mode)
	if err != nil {
		return err
	}
	go uploader.Start()

	// wait shutdown signal
	handleSignal()

	if err := uploader.Close(shutdownTimeout); err != nil {
		return err
	}
	logrus.Info("Server exited")
	return nil
}
