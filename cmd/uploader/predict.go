package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/devsapp/ripeness-uploader/pkg/client"
	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/log"
	"github.com/devsapp/ripeness-uploader/pkg/preview"
	"github.com/devsapp/ripeness-uploader/pkg/upload"
	"github.com/devsapp/ripeness-uploader/pkg/utils"
	"github.com/spf13/cobra"
)

func predictCmd() *cobra.Command {
	var (
		model      string
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "predict FILE",
		Short: "Predict the ripeness of one image",
		Long: `Send FILE to the prediction service once and print the result.

Examples:
  uploader predict tomato.jpg
  uploader predict tomato.jpg --model=vgg16`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitConfig(configFile); err != nil {
				return err
			}
			log.Init(config.ConfigGlobal.Mode)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runPredict(ctx, cmd.OutOrStdout(), config.ConfigGlobal, args[0], model)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "model optimized|vgg16 (default from config)")
	cmd.Flags().StringVar(&configFile, "config", defaultConfigPath, "config path")
	return cmd
}

// runPredict drive one select and upload cycle, the failure message is returned as error
func runPredict(ctx context.Context, out io.Writer, cfg *config.Config, fn, model string) error {
	if model == "" {
		model = cfg.DefaultModel
	}
	if !config.IsModel(model) {
		return fmt.Errorf("%w: %s", upload.ErrUnknownModel, model)
	}
	ctrl := upload.NewController(
		client.InitManagerClient(cfg.GetHttpTimeout()),
		client.NewResolver(cfg),
		preview.NewStore(cfg.PreviewMaxSize, preview.WithMaxPixels(cfg.PreviewMaxPixels)),
		upload.WithModel(model),
	)
	defer ctrl.Close()

	// an unreadable file is an invalid selection
	data, _ := utils.ReadFile(fn)
	var file *client.File
	if len(data) > 0 {
		file = &client.File{Name: filepath.Base(fn), Data: data}
	}
	state, err := ctrl.Select(file)
	if err != nil {
		return err
	}
	if state.Error != "" {
		return errors.New(state.Error)
	}
	if state, err = ctrl.Upload(ctx); err != nil {
		return err
	}
	if state.Result == nil {
		return errors.New(state.Error)
	}
	fmt.Fprintf(out, "Prediction: %s\n", state.Result.Label)
	fmt.Fprintf(out, "Confidence: %s\n", state.Result.ConfidenceText)
	return nil
}
