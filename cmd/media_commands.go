package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/MimeLyc/wordsub/internal/subtitle"
	"github.com/MimeLyc/wordsub/internal/token"
	"github.com/spf13/cobra"
)

func newTracksCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tracks <media>",
		Short: "List the embedded subtitle tracks of a media file",
		Args:  exactlyOnePath("media file", "wordsub tracks movie.mkv"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := existingFile(args[0])
			if err != nil {
				return err
			}
			ff := media.NewFFmpeg(cfg.Media.FFmpegBin, cfg.Media.FFprobeBin)
			tracks, err := ff.ProbeSubtitleTracks(cmd.Context(), path)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, tracks)
			}
			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No subtitle tracks found")
				return nil
			}
			rows := make([][]string, 0, len(tracks))
			for i, t := range tracks {
				rows = append(rows, []string{
					strconv.Itoa(i),
					strconv.Itoa(t.StreamIndex),
					t.Language,
					t.Codec,
					yesNo(t.TextBased()),
				})
			}
			printTable(cmd, []string{"#", "Stream", "Language", "Codec", "Text"}, rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft})
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var trackIndex int
	var outPath string

	cmd := &cobra.Command{
		Use:   "extract <media>",
		Short: "Extract one subtitle track to an SRT file",
		Args:  exactlyOnePath("media file", "wordsub extract movie.mkv --track 1"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := existingFile(args[0])
			if err != nil {
				return err
			}
			ff := media.NewFFmpeg(cfg.Media.FFmpegBin, cfg.Media.FFprobeBin)
			tracks, err := ff.ProbeSubtitleTracks(cmd.Context(), path)
			if err != nil {
				return err
			}
			if trackIndex < 0 || trackIndex >= len(tracks) {
				return fmt.Errorf("track %d not found; %s has %d subtitle tracks", trackIndex, filepath.Base(path), len(tracks))
			}
			track := tracks[trackIndex]

			out := strings.TrimSpace(outPath)
			if out == "" {
				out = defaultExtractPath(path, track)
			}
			if err := ff.ExtractTrack(cmd.Context(), path, track, out); err != nil {
				return err
			}
			res, err := subtitle.ReadFile(out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %s to %s (%d cues, %d skipped)\n",
				track.Label(), out, len(res.Entries), len(res.Skipped))
			return nil
		},
	}

	cmd.Flags().IntVar(&trackIndex, "track", 0, "Track number as listed by `wordsub tracks`")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (default <media>.<language>.srt)")
	return cmd
}

func defaultExtractPath(mediaPath string, track media.Track) string {
	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	lang := track.Language
	if lang == "" || lang == media.UnknownField {
		lang = "s" + strconv.Itoa(track.Position)
	}
	return base + "." + lang + ".srt"
}

func newCuesCommand() *cobra.Command {
	var at string
	var asSRT bool

	cmd := &cobra.Command{
		Use:         "cues <file.srt>",
		Short:       "Parse a subtitle file and show its cues",
		Args:        exactlyOnePath("subtitle file", "wordsub cues movie.srt --at 00:01:05,200"),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := existingFile(args[0])
			if err != nil {
				return err
			}
			res, err := subtitle.ReadFile(path)
			if err != nil {
				return err
			}
			for _, sk := range res.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped block %d: %s (%q)\n", sk.Ordinal, sk.Reason, sk.Excerpt)
			}

			if strings.TrimSpace(at) != "" {
				pos, err := subtitle.ParseTimestamp(at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				return printCueAt(cmd, res.Entries, pos)
			}
			if asSRT {
				return subtitle.Write(cmd.OutOrStdout(), res.Entries)
			}

			rows := make([][]string, 0, len(res.Entries))
			for i, e := range res.Entries {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					subtitle.FormatTimestamp(e.Start),
					subtitle.FormatTimestamp(e.End),
					e.Text,
				})
			}
			printTable(cmd, []string{"#", "Start", "End", "Text"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft})
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Show the cue active at this time (seconds or HH:MM:SS,mmm)")
	cmd.Flags().BoolVar(&asSRT, "srt", false, "Write the parsed cues back out as normalized SRT")
	return cmd
}

func printCueAt(cmd *cobra.Command, entries []subtitle.Entry, pos float64) error {
	out := cmd.OutOrStdout()
	entry, ok := subtitle.NewIndex(entries).At(pos)
	if !ok || entry.Text == "" {
		fmt.Fprintf(out, "No cue at %s\n", subtitle.FormatTimestamp(pos))
		return nil
	}
	fmt.Fprintln(out, entry.String())
	keys := token.Keys(token.New(subtitle.DetectLanguage(entries)).Tokenize(entry.Text))
	fmt.Fprintf(out, "words: %s\n", strings.Join(keys, ", "))
	return nil
}

func exactlyOnePath(what, example string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("provide the path to the %s. Example: %s", what, example)
		}
		return nil
	}
}

func existingFile(arg string) (string, error) {
	path := strings.TrimSpace(arg)
	if path == "" {
		return "", fmt.Errorf("file path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file %q not found", path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path %q is a directory", path)
	}
	return path, nil
}
