package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pthm/openwire"
	"github.com/pthm/openwire/lib/template"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileComponent feeds the compiler values read from a data file.
type fileComponent struct {
	data map[string]any
	cfg  template.Config
}

func (c fileComponent) Value(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c fileComponent) Config() template.Config {
	return c.cfg
}

func newCompileCmd() *cobra.Command {
	var (
		dataPath  string
		component string
		id        string
		stateful  bool
	)
	cmd := &cobra.Command{
		Use:   "compile <template>",
		Short: "Compile a template's directives and print the markup",
		Long: "Compile expands @event, {{ value }} and openwire=\"name\" directives.\n" +
			"Values come from --data, a YAML or JSON object. Use - to read the template from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			data := map[string]any{}
			if dataPath != "" {
				raw, err := os.ReadFile(dataPath)
				if err != nil {
					return fmt.Errorf("compile: %w", err)
				}
				if err := yaml.Unmarshal(raw, &data); err != nil {
					return fmt.Errorf("compile: parse %s: %w", dataPath, err)
				}
			}
			if id == "" {
				id = openwire.NewID()
			}

			c := fileComponent{
				data: data,
				cfg:  template.Config{Component: component, ID: id, Stateful: stateful},
			}
			if stateful {
				c.cfg.InitialState = data
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), template.Compile(src, c))
			return err
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "YAML or JSON file with component values")
	cmd.Flags().StringVar(&component, "component", "component", "component alias written to data-ow-component")
	cmd.Flags().StringVar(&id, "id", "", "instance id; generated when empty")
	cmd.Flags().BoolVar(&stateful, "stateful", false, "embed the values as initial state")
	return cmd
}

func readSource(stdin io.Reader, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("compile: %w", err)
	}
	return string(raw), nil
}
