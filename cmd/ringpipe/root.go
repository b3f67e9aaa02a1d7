package main

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pipelined.dev/ringpipe/log"
	"pipelined.dev/ringpipe/metric"
)

var logger *logrus.Logger

var rootCmd = &cobra.Command{
	Use:           "ringpipe",
	Short:         "ringpipe is a lock-free audio pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = log.GetLogger()
		if viper.GetBool("verbose") {
			logger.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.Int("frame-size", 512, "samples per channel in a single frame")
	pf.Int("buffer-capacity", 8, "ring buffer capacity, must be a power of two")
	pf.BoolP("verbose", "v", false, "enable debug logging")
	pf.Bool("dump-metrics", false, "dump stage counters on exit")

	viper.SetEnvPrefix("ringpipe")
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlags(pf))
}

func dumpMetrics() {
	if viper.GetBool("dump-metrics") {
		spew.Dump(metric.GetAll())
	}
}
