package cmd

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jchau/jobmatch/internal/extract"
	"github.com/jchau/jobmatch/internal/logger"
	"github.com/jchau/jobmatch/internal/server"
)

const defaultListenAddress = ":8081"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation pipeline over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (default "+defaultListenAddress+")")

	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := server.Config{MaxExtractChars: extract.DefaultMaxChars}
	if config != nil {
		if config.AI != nil && config.AI.Gemini != nil {
			cfg.Model = config.AI.Gemini.Model
			cfg.MaxLogLength = config.AI.Gemini.MaxLogLength
		}
		if config.Scrape != nil && config.Scrape.MaxExtractChars > 0 {
			cfg.MaxExtractChars = config.Scrape.MaxExtractChars
		}
	}

	addr := viper.GetString("server.address")
	if addr == "" {
		if config != nil && config.Server != nil && config.Server.Address != "" {
			addr = config.Server.Address
		} else {
			addr = defaultListenAddress
		}
	}

	logger.Info("starting the jobmatch server", zap.String("version", version))

	if err := server.New(cfg, logger).Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
