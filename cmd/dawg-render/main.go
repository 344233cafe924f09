// Command dawg-render renders a region of a project file into a WAV file,
// outside real time.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kennonjarvis-debug/dawg"
	"github.com/kennonjarvis-debug/dawg/engine"
	"github.com/kennonjarvis-debug/dawg/internal/logger"
)

var (
	start    float64
	duration float64
	tail     float64
	output   string
	midiOut  string
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:   "dawg-render <project file>",
	Short: "Render a project region to WAV",
	Long: `dawg-render loads a project document (JSON or YAML), renders the
requested region deterministically and writes a 16-bit PCM WAV file.
The same project and region always produce byte-identical output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.New(logger.Options{Level: logLevel, File: logFile})
		defer log.Sync()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		proj, err := dawg.ReadProject(f)
		if err != nil {
			return fmt.Errorf("reading project: %w", err)
		}

		if duration <= 0 {
			duration = proj.End() - start
		}

		e := engine.New(engine.Config{SampleRate: proj.SampleRate}, log)
		defer e.Close()
		if err := e.Model().LoadProject(proj); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if midiOut != "" {
			data, err := e.ExportSMF()
			if err != nil {
				return fmt.Errorf("exporting midi: %w", err)
			}
			if err := os.WriteFile(midiOut, data, 0644); err != nil {
				return err
			}
		}

		wav, err := e.RenderWAV(ctx, engine.RenderRegion{Start: start, Duration: duration, Tail: tail})
		if err != nil {
			return fmt.Errorf("rendering: %w", err)
		}
		return os.WriteFile(output, wav, 0644)
	},
}

func main() {
	rootCmd.Flags().Float64Var(&start, "start", 0, "region start in seconds")
	rootCmd.Flags().Float64Var(&duration, "duration", 0, "region length in seconds (default: to project end)")
	rootCmd.Flags().Float64Var(&tail, "tail", 1, "extra seconds rendered after the region for effect tails")
	rootCmd.Flags().StringVarP(&output, "out", "o", "out.wav", "output WAV path")
	rootCmd.Flags().StringVar(&midiOut, "midi-out", "", "also export MIDI tracks as a standard MIDI file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "rotated JSON log file")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
