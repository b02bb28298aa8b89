package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/TylerRick/reform"
)

func (a *app) renderCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "render",
		Short:   "Print the form rendered from the model as JSON",
		Example: `  reform render --schema catalog.yaml --name album --model album.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			return a.printJSON(s.form)
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a candidate document against the form",
		Long: `Validate stages the candidate into the form and runs every rule. Errors are
printed as JSON keyed by dotted path and the exit status is 1 when the
candidate is invalid. The model is never modified.`,
		Example: `  reform validate -s catalog.yaml -n album -m album.json -i candidate.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			cand, err := a.candidate()
			if err != nil {
				return err
			}
			if !s.form.Validate(cmd.Context(), cand) {
				if err := a.printJSON(s.form.Errors()); err != nil {
					return err
				}
				return errInvalid
			}
			_, err = fmt.Fprintln(a.out, "valid")
			return err
		},
	}
}

func (a *app) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "save",
		Short:   "Validate a candidate and print the model with it saved",
		Example: `  reform save -s catalog.yaml -n album -m album.json -i candidate.json > updated.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			cand, err := a.candidate()
			if err != nil {
				return err
			}
			if !s.form.Validate(cmd.Context(), cand) {
				if err := a.printJSON(s.form.Errors()); err != nil {
					return err
				}
				return errInvalid
			}
			if err := s.form.Save(cmd.Context()); err != nil {
				return err
			}
			return a.printJSON(s.model)
		},
	}
}

// inspection is the value dumped by inspect.
type inspection struct {
	Mode     string
	Targets  []string
	Fields   reform.Hash
	Presence reform.PresenceMap
	Valid    bool
	Errors   map[string][]string
}

func (a *app) inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dump the materialized field tree",
		Long: `Inspect dumps the form's field tree with go-spew. With --input the
candidate is validated first so staged values, presence flags and errors
show up in the dump.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			if a.v.GetString("input") != "" {
				cand, err := a.candidate()
				if err != nil {
					return err
				}
				s.form.Validate(cmd.Context(), cand)
			}
			cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
			cfg.Fdump(a.out, inspection{
				Mode:     s.schema.Mode().String(),
				Targets:  s.schema.Targets(),
				Fields:   s.form.ToHash(),
				Presence: s.form.Presence(),
				Valid:    s.form.Valid(),
				Errors:   s.form.Errors().Messages(),
			})
			return nil
		},
	}
	return cmd
}

func (a *app) jsonschemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "jsonschema",
		Short:   "Print the JSON Schema of a catalog schema",
		Example: `  reform jsonschema --schema catalog.yaml --name album`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			doc, err := s.schema.JSONSchema()
			if err != nil {
				return err
			}
			return a.printJSON(doc)
		},
	}
}

func (a *app) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}
