package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dgallion1/docspeak/internal/chunker"
	"github.com/dgallion1/docspeak/internal/outline"
	"github.com/dgallion1/docspeak/internal/playback"
	"github.com/spf13/cobra"
)

func outlineCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "outline <file>",
		Short: "Print the table of contents of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			doc, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				b, _ := json.MarshalIndent(doc.TableOfContents, "", "  ")
				fmt.Fprintln(out, string(b))
				return nil
			}

			fmt.Fprintf(out, "%s (%s, %d pages)\n", doc.Title, doc.Type, doc.Metadata.Pages)
			for _, w := range doc.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			for _, fe := range outline.Flatten(doc.TableOfContents) {
				fmt.Fprintf(out, "%s- %s\n", strings.Repeat("  ", fe.Depth), fe.Entry.Title)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the nested outline as JSON")
	return cmd
}

func sectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections <file>",
		Short: "List the sections of a document with their offsets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			doc, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LEVEL\tSTART\tEND\tWORDS\tTITLE")
			for _, s := range doc.Sections {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\n", s.Level, s.StartOffset, s.EndOffset, chunker.WordCount(s.Content), s.Title)
			}
			return tw.Flush()
		},
	}
	return cmd
}

func chunksCmd() *cobra.Command {
	var section string
	var budget int

	cmd := &cobra.Command{
		Use:   "chunks <file>",
		Short: "Show how a document is split into utterances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			doc, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text, err := pickText(doc, section)
			if err != nil {
				return err
			}
			if budget <= 0 {
				budget = a.cfg.ChunkBudget
			}

			out := cmd.OutOrStdout()
			n := 0
			for c := range chunker.Stream(text, budget) {
				fmt.Fprintf(out, "[%d] %s\n", c.Index, c.Text)
				n++
			}
			fmt.Fprintf(out, "%d chunks, about %s at normal rate\n", n, chunker.EstimateDuration(text, 1).Round(time.Second))
			return nil
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "only chunk the section with this title")
	cmd.Flags().IntVar(&budget, "budget", 0, "characters per chunk (default from CHUNK_BUDGET)")
	return cmd
}

func speakCmd() *cobra.Command {
	var section string
	var opts playback.Options

	cmd := &cobra.Command{
		Use:   "speak <file>",
		Short: "Read a document or one of its sections aloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("voice") {
				opts.Voice = a.cfg.DefaultVoice
			}
			if !flags.Changed("rate") {
				opts.Rate = a.cfg.DefaultRate
			}
			if !flags.Changed("pitch") {
				opts.Pitch = a.cfg.DefaultPitch
			}
			if !flags.Changed("volume") {
				opts.Volume = a.cfg.DefaultVolume
			}

			engine := a.engine()
			if !engine.Supported() {
				return fmt.Errorf("speech synthesizer %q not found", a.cfg.SpeechBinary)
			}

			doc, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text, err := pickText(doc, section)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, unsubscribe := engine.Subscribe(32)
			defer unsubscribe()
			go func() {
				for ev := range events {
					if ev.Text != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "[%d] %s\n", ev.Index, ev.Text)
					}
				}
			}()

			done, err := engine.Start(ctx, text, opts)
			if errors.Is(err, playback.ErrEmptyText) {
				return fmt.Errorf("nothing to read in %s", args[0])
			}
			if err != nil {
				return err
			}
			return <-done
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "read only the section with this title")
	cmd.Flags().StringVar(&opts.Voice, "voice", "", "voice name (default from SPEECH_VOICE)")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 1, "speaking rate, 1 is normal")
	cmd.Flags().Float64Var(&opts.Pitch, "pitch", 1, "pitch, 1 is normal")
	cmd.Flags().Float64Var(&opts.Volume, "volume", 1, "volume from 0 to 1")
	return cmd
}

func voicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the synthesizer's voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			engine := a.engine()
			voices, err := engine.Voices(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LANGUAGE\tNAME")
			for _, v := range voices {
				fmt.Fprintf(tw, "%s\t%s\n", v.Language, v.Name)
			}
			return tw.Flush()
		},
	}
}
