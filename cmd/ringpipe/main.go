// Command ringpipe is a CLI around the pipeline: it generates test tones
// and processes wav files.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
