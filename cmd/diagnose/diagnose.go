// Package diagnose implements the one-shot diagnosis command.
package diagnose

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/lungcheck/internal/classifier"
	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/datastore"
	"github.com/tphakala/lungcheck/internal/diagnosis"
	"github.com/tphakala/lungcheck/internal/errors"
	"github.com/tphakala/lungcheck/internal/imaging"
)

// Command creates the diagnose command.
func Command(settings *conf.Settings) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "diagnose [image]",
		Short: "Diagnose a single chest X-ray image",
		Long:  "Classify one image file and print the result as JSON. With --save the result is also stored in the prediction history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, args[0], save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store the result in the prediction history")
	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, path string, save bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New(fmt.Errorf("cannot read image: %w", err)).
			Component("cli").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	handle := classifier.New(classifier.ConfigFromSettings(settings))
	defer handle.Close()

	orch := diagnosis.NewOrchestrator(handle)
	up := diagnosis.Upload{
		Filename:  filepath.Base(path),
		MediaType: MediaType(path, data),
		Data:      data,
	}

	var out diagnosis.DTO
	if save {
		store, err := datastore.Open(settings)
		if err != nil {
			return err
		}
		defer store.Close()

		out, err = diagnosis.NewService(orch, store).Submit(cmd.Context(), up)
		if err != nil {
			return err
		}
	} else {
		if err := imaging.ValidateMediaType(up.MediaType).Err(); err != nil {
			return err
		}
		result, err := orch.Diagnose(data)
		if err != nil {
			return err
		}
		out = diagnosis.DTO{
			Filename:   up.Filename,
			Prediction: result.Label,
			Confidence: result.Confidence,
			Timestamp:  time.Now().UTC(),
		}
	}

	if !handle.Trained() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: model weights not found, result comes from an untrained network")
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

// MediaType infers the media type the way a browser upload would declare it: from
// the file extension, falling back to content sniffing.
func MediaType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
