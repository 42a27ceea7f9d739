package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/extract"
	"github.com/dgallion1/docmap/internal/fieldpath"
	"github.com/dgallion1/docmap/internal/inject"
	"github.com/dgallion1/docmap/internal/mapping"
	"github.com/dgallion1/docmap/internal/schema"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields <schema.json>",
	Short: "List the leaf fields of a JSON Schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := loadFields(args[0])
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), map[string]any{
			"fields": fields,
			"groups": schema.GroupFields(fields),
		})
	},
}

var nodesCmd = &cobra.Command{
	Use:   "nodes <document.docx>",
	Short: "List the addressable nodes of a document in reading order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		nodes := doc.Nodes()
		infos := make([]docmodel.NodeInfo, len(nodes))
		for i, n := range nodes {
			infos[i] = docmodel.Info(n)
		}
		return output(cmd.OutOrStdout(), map[string]any{
			"nodes":  infos,
			"tables": doc.Tables(),
		})
	},
}

var guessCmd = &cobra.Command{
	Use:   "guess <document.docx> <schema.json>",
	Short: "Auto-guess a field mapping by matching field names to document text",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		fields, err := loadFields(args[1])
		if err != nil {
			return err
		}
		var existing mapping.Mapping
		if path, _ := cmd.Flags().GetString("mapping"); path != "" {
			if existing, err = loadMapping(path); err != nil {
				return err
			}
		}

		m := mapping.Guess(existing, fields, doc.Nodes())
		log.Info("mapping guessed", "fields", len(fields), "mapped", len(m))
		for _, c := range m.Conflicts() {
			log.Warn("location mapped more than once", "address", c.Address.String(), "fields", c.Fields)
		}

		var buf bytes.Buffer
		if err := m.Save(&buf); err != nil {
			return err
		}
		return writeResult(cmd, buf.Bytes())
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <document.docx> <mapping.json>",
	Short: "Read mapped fields out of a filled document into JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadMapping(args[1])
		if err != nil {
			return err
		}
		run := func() error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			data, rep := extract.Extract(doc, m)
			log.Info("extracted", "succeeded", len(rep.Succeeded), "failed", len(rep.Failed))
			for _, f := range rep.Failed {
				log.Warn("field not extracted", "field", f.Path, "reason", f.Reason)
			}
			out, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return err
			}
			return writeResult(cmd, append(out, '\n'))
		}

		if err := run(); err != nil {
			return err
		}
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return watchFile(cmd.Context(), args[0], run)
		}
		return nil
	},
}

var injectCmd = &cobra.Command{
	Use:   "inject <template.docx> <mapping.json>",
	Short: "Fill mapped fields of a template document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		valuesPath, _ := cmd.Flags().GetString("values")
		dataPath, _ := cmd.Flags().GetString("data")
		if (valuesPath == "") == (dataPath == "") {
			return fmt.Errorf("exactly one of --values or --data is required")
		}

		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		m, err := loadMapping(args[1])
		if err != nil {
			return err
		}

		var values map[string]string
		if valuesPath != "" {
			values, err = loadValues(valuesPath)
		} else {
			var data any
			if data, err = loadJSON(dataPath); err == nil {
				values = inject.ValuesFromData(data, m)
			}
		}
		if err != nil {
			return err
		}

		res := inject.Inject(doc, m, values)
		for _, f := range res.Failed {
			log.Warn("field not injected", "field", f.Path, "reason", f.Reason)
		}
		for _, w := range res.Warnings {
			log.Warn("suspicious value", "field", w.Path, "message", w.Message)
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if _, err := doc.WriteTo(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", out, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Info("document written", "path", out, "applied", res.Applied)
		return output(cmd.OutOrStdout(), res)
	},
}

func init() {
	guessCmd.Flags().String("mapping", "", "existing mapping to keep; only unmapped fields are guessed")
	guessCmd.Flags().String("out", "", "write the mapping here instead of stdout")

	extractCmd.Flags().String("out", "", "write the extracted JSON here instead of stdout")
	extractCmd.Flags().Bool("watch", false, "re-extract whenever the document changes")

	injectCmd.Flags().String("values", "", "flat JSON object of field path -> value")
	injectCmd.Flags().String("data", "", "nested JSON data, e.g. the output of extract")
	injectCmd.Flags().String("out", "", "path of the filled document")
	injectCmd.MarkFlagRequired("out")
}

// writeResult writes b to --out, or to stdout when --out is empty.
func writeResult(cmd *cobra.Command, b []byte) error {
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		_, err := cmd.OutOrStdout().Write(b)
		return err
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("written", "path", out)
	return nil
}

// watchFile calls run after every write to path until ctx is done. The parent
// directory is watched since editors often replace files rather than write
// them in place.
func watchFile(ctx context.Context, path string, run func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	log.Info("watching", "path", abs)

	// Saves arrive as bursts of events; wait for them to settle.
	const settle = 200 * time.Millisecond
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := run(); err != nil {
				log.Error("re-extract failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func loadDocument(path string) (*docmodel.Model, error) {
	if !docmodel.IsSupportedFile(path) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return docmodel.Load(f)
}

func loadFields(path string) ([]schema.Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if viper.GetBool("strict") {
		if err := schema.Check(data); err != nil {
			return nil, err
		}
	}
	return schema.Resolve(data, schema.Options{IncludeOptional: viper.GetBool("include_optional")})
}

func loadMapping(path string) (mapping.Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := mapping.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func loadJSON(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var v any
	if err := json.NewDecoder(f).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}

func loadValues(path string) (map[string]string, error) {
	v, err := loadJSON(path)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected a JSON object of field values", path)
	}
	values := make(map[string]string, len(obj))
	for k, val := range obj {
		values[k] = fieldpath.Format(val)
	}
	return values, nil
}
