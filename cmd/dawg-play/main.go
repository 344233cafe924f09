// Command dawg-play plays a project file through the default audio device,
// optionally taking live MIDI input onto the selected track.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kennonjarvis-debug/dawg"
	"github.com/kennonjarvis-debug/dawg/engine"
	"github.com/kennonjarvis-debug/dawg/gomidi"
	"github.com/kennonjarvis-debug/dawg/internal/logger"
	"github.com/kennonjarvis-debug/dawg/oto"
)

var (
	midiInput  string
	anyMidi    bool
	bufferSize int
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "dawg-play [project file]",
	Short: "Play a project in real time",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.New(logger.Options{Level: logLevel, File: logFile})
		defer log.Sync()

		proj := dawg.NewProject("live")
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			p, err := dawg.ReadProject(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("reading project: %w", err)
			}
			proj = p
		}

		e := engine.New(engine.Config{SampleRate: proj.SampleRate, BufferSize: bufferSize}, log)
		defer e.Close()
		if err := e.Model().LoadProject(proj); err != nil {
			return err
		}

		audio, err := oto.NewContext(proj.SampleRate)
		if err != nil {
			return err
		}
		e.Start(audio)

		midiCtx := gomidi.NewContext(e.Broker(), e.Model().SelectedTrack)
		defer midiCtx.Close()
		if anyMidi || midiInput != "" {
			midiCtx.TryToOpenBy(midiInput, anyMidi)
		}

		<-audio.WaitReady()
		e.Model().Play()
		log.Info("playing", zap.String("project", proj.Name))

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig
		e.Model().Stop()
		return nil
	},
}

func main() {
	rootCmd.Flags().StringVar(&midiInput, "midi-input", "", "open the first MIDI input with this name prefix")
	rootCmd.Flags().BoolVar(&anyMidi, "any-midi", false, "open the first available MIDI input")
	rootCmd.Flags().IntVar(&bufferSize, "buffer-size", 1024, "processing block size in frames")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "rotated JSON log file")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
