package main

import (
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "transfers",
		Short: "DipDup token transfers indexer and API",
	}
	configPath string
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "transfers.yml", "path to YAML config file")
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "api",
			Short: "Serve transfers lookup API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return runAPI(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "indexer",
			Short: "Index ERC20 transfers of configured contracts",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return runIndexer(cmd.Context(), cfg)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("command line execute")
		os.Exit(1)
	}
}

func loadConfig() (Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return cfg, err
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = zerolog.LevelInfoValue
	}

	logLevel, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	zerolog.SetGlobalLevel(logLevel)
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		file = short
		return file + ":" + strconv.Itoa(line)
	}
	log.Logger = log.Logger.With().Caller().Logger()
	return cfg, nil
}
