package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/internal/persistence"
	"github.com/MimeLyc/wordsub/internal/service"
	"github.com/MimeLyc/wordsub/internal/translator"
	"github.com/MimeLyc/wordsub/internal/vocab"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var sentence string
	var target string

	cmd := &cobra.Command{
		Use:   "lookup <word>",
		Short: "Translate a word and add it to the vocabulary store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(target) != "" {
				tag, err := language.Parse(strings.TrimSpace(target))
				if err != nil {
					return fmt.Errorf("--target: %w", err)
				}
				cfg.Translate.TargetLanguage = tag
			}
			backend, err := translator.NewFromConfig(cfg.LLM)
			if err != nil {
				return service.WrapError(err, service.ErrConfig, "translation backend")
			}
			return withStore(cfg, func(store persistence.Store) error {
				words := vocab.NewService(store,
					vocab.NewBackendFetcher(backend, cfg.Translate.SourceLanguage, cfg.Translate.TargetLanguage),
					vocab.Options{RetryErrors: cfg.Vocab.RetryErrors})
				if _, err := words.Warm(cmd.Context()); err != nil {
					return service.WrapError(err, service.ErrPersistence, "read vocabulary store")
				}

				lookupCtx, cancel := context.WithTimeout(cmd.Context(), cfg.Translate.Timeout)
				defer cancel()
				res := words.LookupOrFetch(lookupCtx, args[0], sentence)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s\n", displayWord(res, args[0]), res.Translation)
				switch {
				case res.Cached:
					fmt.Fprintln(out, "(already in the vocabulary)")
				case res.Appended:
					fmt.Fprintf(out, "(saved to %s)\n", cfg.StorePath())
				}
				if res.PersistErr != nil {
					return service.WrapError(res.PersistErr, service.ErrPersistence, "save translation")
				}
				if res.Failed {
					return service.NewError(service.ErrTranslation, "translation failed").WithContext("word", res.Word)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sentence, "context", "", "Sentence the word appeared in")
	cmd.Flags().StringVar(&target, "target", "", "Target language for this lookup (default $TARGET_LANGUAGE)")
	return cmd
}

func displayWord(res vocab.Lookup, raw string) string {
	if res.Word != "" {
		return res.Word
	}
	return strings.TrimSpace(raw)
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the vocabulary store to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := strings.TrimSpace(outPath)
			if out == "" {
				out = cfg.Vocab.ExportPath
			}
			return withStore(cfg, func(store persistence.Store) error {
				exporter := service.NewExporter(store, out, service.NewCron())
				rows, err := exporter.Run(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d translations to %s\n", rows, out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Workbook path (default $EXPORT_FILE)")
	return cmd
}

func newVocabCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "List the saved translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return withStore(cfg, func(store persistence.Store) error {
				records, err := store.All(cmd.Context())
				if err != nil {
					return service.WrapError(err, service.ErrPersistence, "read vocabulary store")
				}
				if failedOnly {
					kept := records[:0]
					for _, rec := range records {
						if vocab.IsPlaceholder(rec.Translation) {
							kept = append(kept, rec)
						}
					}
					records = kept
				}
				if asJSON {
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No translations in %s\n", cfg.StorePath())
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						rec.SourceWord,
						rec.Translation,
						rec.ContextSentence,
						rec.Timestamp.Local().Format("2006-01-02 15:04"),
					})
				}
				printTable(cmd, []string{"Word", "Translation", "Context", "Saved"}, rows, nil)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show words whose translation failed")
	return cmd
}

func withStore(cfg *config.Config, fn func(persistence.Store) error) error {
	store, err := persistence.Open(cfg.Vocab)
	if err != nil {
		return service.WrapError(err, service.ErrPersistence, "open vocabulary store")
	}
	defer store.Close()
	return fn(store)
}
