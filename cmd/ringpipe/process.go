package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pipelined.dev/ringpipe"
	"pipelined.dev/ringpipe/dsp"
	"pipelined.dev/ringpipe/wav"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a wav file with gain and clipping",
	RunE:  runProcess,
}

func init() {
	f := processCmd.Flags()
	f.String("in", "", "input wav file (required)")
	f.String("to", "processed.wav", "output wav file")
	f.Float64("process-gain-db", 0, "gain, db")
	f.Float64("process-clip", 1, "clipping threshold")
	cobra.CheckErr(processCmd.MarkFlagRequired("in"))
	cobra.CheckErr(viper.BindPFlags(f))
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	gain := dsp.NewGain(1)
	gain.SetGainDB(viper.GetFloat64("process-gain-db"))

	p, err := ringpipe.New(
		viper.GetInt("frame-size"),
		ringpipe.Routing{
			Source: wav.Source(viper.GetString("in")),
			Processors: ringpipe.Processors(
				gain.Processor(),
				dsp.NewClip(viper.GetFloat64("process-clip")).Processor(),
			),
			Sink: wav.Sink(viper.GetString("to"), 16),
		},
		ringpipe.WithBufferCapacity(viper.GetInt("buffer-capacity")),
		ringpipe.WithLogger(logger),
		ringpipe.WithName("process"),
	)
	if err != nil {
		return err
	}

	p.Start()
	logger.Infof("%v started", p)
	// the source drives the pipe to completion
	err = p.Wait()
	if stopErr := p.Stop(); err == nil {
		err = stopErr
	}
	dumpMetrics()
	if err != nil {
		return err
	}
	logger.Infof("%v wrote %s", p, viper.GetString("to"))
	return nil
}
