package main

import (
	"fmt"
	"os"
	"strconv"

	"go-regula/internal/common/models"
	"go-regula/internal/features/template"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// cliActor performs administrative writes made from the command line.
var cliActor = models.Actor{ID: "regulactl", Email: "regulactl@regula.local", Role: models.RoleAdmin}

type templateFile struct {
	Templates []struct {
		Name  string `yaml:"name"`
		Steps []struct {
			Name     string  `yaml:"name"`
			Role     string  `yaml:"role"`
			SLAHours float64 `yaml:"slaHours"`
		} `yaml:"steps"`
	} `yaml:"templates"`
}

func loadTemplateFile(path string) ([]template.CreateTemplateInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("%s defines no templates", path)
	}

	inputs := make([]template.CreateTemplateInput, 0, len(f.Templates))
	for _, t := range f.Templates {
		in := template.CreateTemplateInput{Name: t.Name}
		for _, st := range t.Steps {
			role, err := models.ParseRole(st.Role)
			if err != nil {
				return nil, fmt.Errorf("template %q step %q: %w", t.Name, st.Name, err)
			}
			in.Steps = append(in.Steps, template.Step{Name: st.Name, RequiredRole: role, SLAHours: st.SLAHours})
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func newTemplateCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage workflow templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create the templates defined in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := loadTemplateFile(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			for _, in := range inputs {
				tpl, err := s.templates.CreateTemplate(ctx, cliActor, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s, %d steps)\n", tpl.Name, tpl.ID, len(tpl.Steps))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			tpls, err := s.templates.ListTemplates(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0)
			for _, tpl := range tpls {
				for i, st := range tpl.Steps {
					rows = append(rows, []string{
						tpl.Name, strconv.Itoa(i), st.Name, string(st.RequiredRole), st.SLA().String(),
					})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Template", "Step", "Name", "Role", "SLA"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	})
	return cmd
}
