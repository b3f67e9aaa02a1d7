package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"pipelined.dev/ringpipe"
	"pipelined.dev/ringpipe/dsp"
	"pipelined.dev/ringpipe/wav"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a sine tone into a wav file",
	RunE:  runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.String("out", "out.wav", "output wav file")
	f.Float64("freq", 440, "sine frequency, hz")
	f.Float64("gain-db", -6, "gain, db")
	f.Float64("clip", 1, "clipping threshold")
	f.Int("sample-rate", 44100, "sample rate, hz")
	f.Int("channels", 2, "number of channels")
	f.Duration("duration", 2*time.Second, "how long to generate")
	cobra.CheckErr(viper.BindPFlags(f))
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var (
		osc   = dsp.Sine(viper.GetInt("sample-rate"), viper.GetInt("channels"), viper.GetFloat64("freq"), 1)
		gain  = dsp.NewGain(1)
		clip  = dsp.NewClip(viper.GetFloat64("clip"))
		meter = dsp.NewMeter()
	)
	gain.SetGainDB(viper.GetFloat64("gain-db"))

	p, err := ringpipe.New(
		viper.GetInt("frame-size"),
		ringpipe.Routing{
			Source: osc.Source(),
			Processors: ringpipe.Processors(
				gain.Processor(),
				clip.Processor(),
				meter.Processor(),
			),
			Sink: wav.Sink(viper.GetString("out"), 16),
		},
		ringpipe.WithBufferCapacity(viper.GetInt("buffer-capacity")),
		ringpipe.WithLogger(logger),
		ringpipe.WithName("generate"),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, timeout := context.WithTimeout(ctx, viper.GetDuration("duration"))
	defer timeout()

	p.Start()
	logger.Infof("%v started", p)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return p.Stop()
	})
	g.Go(func() error {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if l, ok := meter.Levels(); ok {
					logger.Infof("frame %d peak %.3f rms %.3f", l.Seq, l.Peak, l.RMS)
				}
			}
		}
	})
	err = g.Wait()
	dumpMetrics()
	if err != nil {
		return err
	}
	logger.Infof("%v wrote %s", p, viper.GetString("out"))
	return nil
}
