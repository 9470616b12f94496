package cli

import (
	"crypto/rand"
	"fmt"

	"github.com/dmitrijs2005/pwvault/internal/generator"
	"github.com/spf13/cobra"
)

func (a *App) newGenerateCmd() *cobra.Command {
	var (
		length           int
		noUppercase      bool
		noLowercase      bool
		noNumbers        bool
		noSymbols        bool
		excludeAmbiguous bool
		escape           bool
		passphrase       bool
		words            int
		separator        string
		capitalize       bool
		copyToClip       bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a password or passphrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				result string
				err    error
			)

			if passphrase {
				result, err = generator.Passphrase(rand.Reader, words, separator, capitalize)
			} else {
				cfg := generator.Config{
					Length:           length,
					Uppercase:        !noUppercase,
					Lowercase:        !noLowercase,
					Digits:           !noNumbers,
					Symbols:          !noSymbols,
					ExcludeAmbiguous: excludeAmbiguous,
				}
				if cfg.Uppercase {
					cfg.MinUppercase = 1
				}
				if cfg.Lowercase {
					cfg.MinLowercase = 1
				}
				if cfg.Digits {
					cfg.MinDigits = 1
				}
				if cfg.Symbols {
					cfg.MinSymbols = 1
				}

				if escape {
					result, err = generator.GenerateEscaped(rand.Reader, cfg)
				} else {
					result, err = generator.Generate(rand.Reader, cfg)
				}
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, result)
			if copyToClip {
				if err := a.clip.Copy(result); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&length, "length", 16, "password length")
	cmd.Flags().BoolVar(&noUppercase, "no-uppercase", false, "exclude uppercase letters")
	cmd.Flags().BoolVar(&noLowercase, "no-lowercase", false, "exclude lowercase letters")
	cmd.Flags().BoolVar(&noNumbers, "no-numbers", false, "exclude digits")
	cmd.Flags().BoolVar(&noSymbols, "no-symbols", false, "exclude symbols")
	cmd.Flags().BoolVar(&excludeAmbiguous, "exclude-ambiguous", false, "drop visually confusable glyphs (0O1lI)")
	cmd.Flags().BoolVar(&escape, "escape", false, "shell-escape the output")
	cmd.Flags().BoolVar(&passphrase, "passphrase", false, "generate a word passphrase instead")
	cmd.Flags().IntVar(&words, "words", 4, "passphrase word count")
	cmd.Flags().StringVar(&separator, "separator", "-", "passphrase separator")
	cmd.Flags().BoolVar(&capitalize, "capitalize", false, "capitalize passphrase words")
	cmd.Flags().BoolVar(&copyToClip, "copy", false, "copy the result to the clipboard")
	return cmd
}
