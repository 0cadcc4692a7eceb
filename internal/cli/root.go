package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/series-notifier/internal/config"
	"github.com/Guilhem-Bonnet/series-notifier/internal/logging"
)

const appName = "series-notifier"

// RootOptions porte les drapeaux globaux et l'état chargé avant chaque sous-commande.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	Config *config.Config
	Logger zerolog.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Suivi des sorties de séries: digest Telegram depuis un catalogue Notion",
		Long: `series-notifier lit un catalogue de séries dans Notion, corrige les dates
de prochain épisode (cadence hebdomadaire), maintient un miroir local optionnel
et envoie des digests (aujourd'hui, demain, cette semaine, semaine prochaine) via Telegram.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.Log.Level = opts.LogLevel
			}
			opts.Config = cfg
			opts.Logger = logging.New(appName, logging.Options{
				Level:  cfg.Log.Level,
				Pretty: cfg.Log.Pretty,
				Out:    cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./config.yaml or ~/.config/series-notifier/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log.level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewDigestCommand(opts))
	cmd.AddCommand(NewWantedCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
