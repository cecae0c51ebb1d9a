package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/MimeLyc/wordsub/internal/playback"
	"github.com/MimeLyc/wordsub/pkg/icron"
	"github.com/spf13/cobra"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			ff := media.NewFFmpeg(cfg.Media.FFmpegBin, cfg.Media.FFprobeBin)
			statuses := media.CheckBinaries(ff.Requirements())
			rows := make([][]string, 0, len(statuses)+1)
			for _, s := range statuses {
				rows = append(rows, []string{s.Name, s.Command, yesNo(s.Available), s.Detail})
			}
			rows = append(rows, mpvRow(cfg.Media.MPVSocket))
			printTable(cmd, []string{"Dependency", "Command", "Available", "Detail"}, rows, nil)

			fmt.Fprintf(out, "Translation: %s model %s at %s (%s -> %s)\n",
				cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.APIURL,
				cfg.Translate.SourceLanguage, cfg.Translate.TargetLanguage)
			fmt.Fprintf(out, "Vocabulary: %s store at %s\n", cfg.Vocab.Backend, cfg.StorePath())
			if expr := strings.TrimSpace(cfg.Vocab.ExportCron); expr != "" {
				info, err := icron.GetTriggerInfo(expr, time.Now())
				if err != nil {
					return fmt.Errorf("export schedule: %w", err)
				}
				fmt.Fprintf(out, "Export: %s on %q, next at %s\n",
					cfg.Vocab.ExportPath, expr, info.Next.Format(time.RFC3339))
			} else {
				fmt.Fprintf(out, "Export: %s on demand only\n", cfg.Vocab.ExportPath)
			}

			if missing := media.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %s; embedded subtitle tracks will fall back to the player's own rendering",
					strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func mpvRow(socket string) []string {
	if strings.TrimSpace(socket) == "" {
		return []string{"mpv", "", "no", "MPV_SOCKET not set, the simulated player is used"}
	}
	m, err := playback.DialMPV(socket, time.Second)
	if err != nil {
		return []string{"mpv", socket, "no", err.Error()}
	}
	_ = m.Close()
	return []string{"mpv", socket, "yes", "connected"}
}
