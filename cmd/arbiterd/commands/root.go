package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile          string
	throughput       int
	mailboxCapacity  int
	restartIntensity int
	restartPeriodMS  int
	logLevel         string
)

// rootCmd is the base command for the arbiterd demo CLI.
var rootCmd = &cobra.Command{
	Use:   "arbiterd",
	Short: "Run demo actor trees against the arbiter runtime",
	Long: `arbiterd is a small demonstration harness around the arbiter
actor runtime: it bootstraps an ActorSystem from flags/config/environment
and runs one of a handful of scripted scenarios against it.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.arbiterd.yaml)")
	rootCmd.PersistentFlags().IntVar(&throughput, "throughput", 10, "per-dispatcher drain batch size")
	rootCmd.PersistentFlags().IntVar(&mailboxCapacity, "mailbox-capacity", 0, "default mailbox capacity (0 = unbounded)")
	rootCmd.PersistentFlags().IntVar(&restartIntensity, "restart-intensity", 5, "max restarts per period before escalating")
	rootCmd.PersistentFlags().IntVar(&restartPeriodMS, "restart-period-ms", 10000, "restart intensity window, in milliseconds")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error, discard")

	_ = viper.BindPFlag("throughput", rootCmd.PersistentFlags().Lookup("throughput"))
	_ = viper.BindPFlag("mailbox_capacity", rootCmd.PersistentFlags().Lookup("mailbox-capacity"))
	_ = viper.BindPFlag("restart_intensity", rootCmd.PersistentFlags().Lookup("restart-intensity"))
	_ = viper.BindPFlag("restart_period_ms", rootCmd.PersistentFlags().Lookup("restart-period-ms"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".arbiterd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("ARBITERD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Println("arbiterd: warning: reading config:", err)
		}
	}
}
