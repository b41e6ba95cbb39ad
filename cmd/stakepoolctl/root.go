// Package main implements stakepoolctl, the operator CLI for driving a
// liquid-staking pool's settlement pipeline: triggering epoch_stake,
// epoch_unstake, epoch_withdraw and drain rounds, managing validators,
// and tailing the emitted event log.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stakepool/liquidcore/common/logging"
)

var logger = logging.GetLogger("cmd/stakepoolctl")

var (
	cfgFile string
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "stakepoolctl",
	Short: "Operate a liquid-staking accounting pool",
	Long:  "stakepoolctl drives a pool's settlement pipeline and validator set from the command line.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.stakepoolctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "persistent state directory")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		logger.Error("failed to bind flags", "err", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(epochCmd)
	rootCmd.AddCommand(validatorCmd)
	rootCmd.AddCommand(managerCmd)
	rootCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".stakepoolctl")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("STAKEPOOLCTL")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		logger.Debug("no config file loaded", "err", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
