package schema

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/calcforge/calcforge/internal/ctxlog"
)

//go:embed builtin/*.hcl
var builtinFS embed.FS

// fileRoot decodes the top-level blocks of one schema manifest file.
type fileRoot struct {
	Services []*serviceBlock `hcl:"service,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type serviceBlock struct {
	Type        string        `hcl:"type,label"`
	Description string        `hcl:"description,optional"`
	Fields      []*fieldBlock `hcl:"field,block"`
}

type fieldBlock struct {
	Name     string         `hcl:"name,label"`
	Kind     string         `hcl:"kind"`
	Required bool           `hcl:"required,optional"`
	Default  hcl.Expression `hcl:"default,optional"`
	Values   []string       `hcl:"values,optional"`
}

// LoadBuiltin builds a registry from the schema manifests embedded in the
// binary. This is the default source when no --schemas path is given.
func LoadBuiltin(ctx context.Context) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, fmt.Errorf("reading embedded schemas: %w", err)
	}

	parser := hclparse.NewParser()
	reg := newRegistry()
	for _, entry := range entries {
		name := filepath.Join("builtin", entry.Name())
		src, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading embedded schema %s: %w", name, err)
		}
		if err := loadManifest(parser, reg, name, src); err != nil {
			return nil, err
		}
	}
	logger.Debug("Loaded embedded service schemas.", "count", reg.Len())
	return reg, nil
}

// Load builds a registry from .hcl manifest files found at the given paths.
// Each path may be a single file or a directory searched recursively.
// Any malformed manifest fails the whole load; there is no partial registry.
func Load(ctx context.Context, paths ...string) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findManifestFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl schema manifests found under %v", paths)
	}
	logger.Debug("Discovered schema manifest files.", "count", len(files))

	parser := hclparse.NewParser()
	reg := newRegistry()
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading schema manifest %s: %w", file, err)
		}
		if err := loadManifest(parser, reg, file, src); err != nil {
			return nil, err
		}
	}
	logger.Debug("Loaded service schemas.", "count", reg.Len())
	return reg, nil
}

func loadManifest(parser *hclparse.Parser, reg *Registry, filename string, src []byte) error {
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse schema manifest %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode schema manifest %s: %w", filename, diags)
	}

	for _, block := range root.Services {
		svc, err := translateService(block)
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		if err := reg.add(svc); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
	}
	return nil
}

// translateService converts a decoded service block into the model form,
// enforcing every load-time invariant: valid kinds, enum value sets, and
// defaults that satisfy their own kind.
func translateService(block *serviceBlock) (*Service, error) {
	svc := &Service{
		Type:        block.Type,
		Description: block.Description,
	}

	for _, fb := range block.Fields {
		kind, err := ParseKind(fb.Kind)
		if err != nil {
			return nil, fmt.Errorf("service %q, field %q: %w", block.Type, fb.Name, err)
		}

		field := Field{
			Name:     fb.Name,
			Kind:     kind,
			Required: fb.Required,
			Values:   fb.Values,
		}

		if kind == KindEnum && len(fb.Values) == 0 {
			return nil, fmt.Errorf("service %q, field %q: enum fields must declare a values list", block.Type, fb.Name)
		}
		if kind != KindEnum && len(fb.Values) > 0 {
			return nil, fmt.Errorf("service %q, field %q: values list is only valid on enum fields", block.Type, fb.Name)
		}

		if fb.Default != nil {
			val, diags := fb.Default.Value(nil)
			if !diags.HasErrors() && !val.IsNull() {
				converted, err := convert.Convert(val, kind.CtyType())
				if err != nil {
					return nil, fmt.Errorf("service %q, field %q: default does not satisfy kind %s: %w", block.Type, fb.Name, kind, err)
				}
				if kind == KindEnum && !field.AllowsValue(converted.AsString()) {
					return nil, fmt.Errorf("service %q, field %q: default %q is not in the enum value set", block.Type, fb.Name, converted.AsString())
				}
				field.Default = converted
			}
		}

		if field.Required && field.HasDefault() {
			return nil, fmt.Errorf("service %q, field %q: a required field cannot carry a default", block.Type, fb.Name)
		}

		svc.Fields = append(svc.Fields, field)
	}

	return svc, nil
}

// findManifestFiles walks all given paths and returns every .hcl file found.
func findManifestFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, dup := seen[p]; !dup {
			all = append(all, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing schema path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && filepath.Ext(p) == ".hcl" {
					add(p)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			add(path)
		}
	}
	return all, nil
}
