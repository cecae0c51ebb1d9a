package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/internal/library"
	"github.com/MimeLyc/wordsub/internal/media"
	"github.com/spf13/cobra"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	var probe bool
	var studyable bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "library [dir...]",
		Short: "List media files and the subtitles available to study them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs := args
			if len(dirs) == 0 {
				dirs = cfg.Media.Dirs
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no media directories; pass them as arguments or set MEDIA_DIRS")
			}

			cat, err := newLibraryScanner(cfg, dirs, probe).Scan(cmd.Context())
			if err != nil {
				return err
			}
			files := cat.Files
			if studyable {
				kept := files[:0]
				for _, f := range files {
					if f.Studyable {
						kept = append(kept, f)
					}
				}
				files = kept
			}
			if asJSON {
				cat.Files = files
				return writeJSON(cmd, cat)
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No media files found")
				return nil
			}

			rows := make([][]string, 0, len(files))
			for _, f := range files {
				rows = append(rows, []string{
					titleName(cat, f.TitleID),
					f.Season,
					f.Name,
					strings.Join(f.Subtitles.Languages, ","),
					yesNo(f.Studyable),
					firstOr(f.Subtitles.SourceSidecars, filepath.Base(f.Path)),
				})
			}
			printTable(cmd, []string{"Title", "Season", "Name", "Subtitles", "Studyable", "Open"}, rows, nil)
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Inspect embedded tracks with ffprobe (slow on large libraries)")
	cmd.Flags().BoolVar(&studyable, "studyable", false, "Only list files with subtitles in the source language")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newLibraryScanner(cfg *config.Config, dirs []string, probe bool) *library.Scanner {
	var opts []library.Option
	if probe {
		ff := media.NewFFmpeg(cfg.Media.FFmpegBin, cfg.Media.FFprobeBin)
		opts = append(opts, library.WithTrackLister(ff.ProbeSubtitleTracks))
	}
	return library.NewScanner(library.RootsFromDirs(dirs), cfg.Translate.SourceLanguage, opts...)
}

func titleName(cat *library.Catalog, id string) string {
	for _, t := range cat.Titles {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return filepath.Base(values[0])
	}
	return fallback
}
