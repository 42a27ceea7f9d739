package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	log     = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:   "docmap",
	Short: "Map JSON Schema fields onto .docx locations, then extract or fill them",
	Long: `docmap maps the leaf fields of a JSON Schema onto headings, paragraphs
and table cells of a .docx document.

Typical flow:
  docmap fields schema.json                      # list schema leaf fields
  docmap nodes form.docx                         # list addressable document nodes
  docmap guess form.docx schema.json --out m.json
  docmap extract filled.docx m.json --out data.json
  docmap inject template.docx m.json --data data.json --out filled.docx

Settings can also come from DOCMAP_* environment variables or a
.docmap.yaml file in the working or home directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./.docmap.yaml or ~/.docmap.yaml)")
	pf.StringP("output", "o", "yaml", "output format for listings: yaml or json")
	pf.Bool("include-optional", false, "resolve properties outside a schema's required list")
	pf.Bool("strict", false, "compile the schema with a JSON Schema validator before resolving")

	for _, name := range []string{"output", "include-optional", "strict"} {
		viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), pf.Lookup(name))
	}

	rootCmd.AddCommand(fieldsCmd, nodesCmd, guessCmd, extractCmd, injectCmd)
}

// initConfig layers DOCMAP_* env vars and an optional config file under the
// flags.
func initConfig() error {
	viper.SetEnvPrefix("DOCMAP")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".docmap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	switch f := viper.GetString("output"); f {
	case "yaml", "json":
	default:
		return fmt.Errorf("unknown output format: %s", f)
	}
	return nil
}
