package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/calcforge/calcforge/internal/schema"
)

func servicesCommand() *cli.Command {
	return &cli.Command{
		Name:      "services",
		Usage:     "List supported service types, or describe one schema",
		ArgsUsage: "[service-type]",
		Action:    runServices,
	}
}

func runServices(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	if serviceType := c.Args().First(); serviceType != "" {
		return describeService(a.Schemas(), serviceType)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Service Type", "Automatable", "Description"})

	for _, serviceType := range a.Schemas().Types() {
		svc, err := a.Schemas().Get(serviceType)
		if err != nil {
			continue
		}
		_, cerr := a.Configurators().Resolve(serviceType)
		t.AppendRow(table.Row{svc.Type, cerr == nil, svc.Description})
	}
	t.Render()
	return nil
}

func describeService(schemas *schema.Registry, serviceType string) error {
	svc, err := schemas.Get(serviceType)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	fmt.Printf("%s: %s\n\n", svc.Type, svc.Description)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Kind", "Required", "Default", "Values"})

	for _, f := range svc.Fields {
		var def string
		if f.HasDefault() {
			def = defaultString(f)
		}
		var values string
		if len(f.Values) > 0 {
			values = fmt.Sprintf("%v", f.Values)
		}
		t.AppendRow(table.Row{f.Name, f.Kind.String(), f.Required, def, values})
	}
	t.Render()
	return nil
}

func defaultString(f schema.Field) string {
	switch f.Kind {
	case schema.KindNumber:
		return f.Default.AsBigFloat().Text('g', -1)
	case schema.KindBool:
		return fmt.Sprintf("%t", f.Default.True())
	default:
		return f.Default.AsString()
	}
}
