package gen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/etpu-project/etpu-go/pkg/region"
)

// Output file names written by WriteAll.
const (
	MemHeaderFile   = "mem.h"
	LinkerFile      = "regions.ld"
	CSVFile         = "csr.csv"
	GoConstantsFile = "regions_gen.go"

	// DefaultGoPackage is the package name WriteAll uses for Go constants.
	DefaultGoPackage = "regions"
)

// ErrNameCollision is returned when two region names map to the same
// generated identifier.
var ErrNameCollision = errors.New("region names collide")

var funcMap = template.FuncMap{
	"upper":  strings.ToUpper,
	"goName": goName,
	"hex32":  func(v uint64) string { return fmt.Sprintf("0x%08x", v) },
}

var templates = template.Must(template.New("").Funcs(funcMap).Parse(
	memHeaderTmpl + linkerTmpl + goConstantsTmpl,
))

const memHeaderTmpl = `{{define "memHeader" -}}
//--------------------------------------------------------------------------------
// Auto-generated by etpu-gen. Do not edit.
//--------------------------------------------------------------------------------
#ifndef __GENERATED_MEM_H
#define __GENERATED_MEM_H
{{range .}}
#ifndef {{upper .Name}}_BASE
#define {{upper .Name}}_BASE {{hex32 .Origin}}L
#define {{upper .Name}}_SIZE {{hex32 .Length}}
#endif
{{end}}
#endif
{{end}}`

const linkerTmpl = `{{define "linker" -}}
MEMORY {
{{- range .}}
	{{.Name}} : ORIGIN = {{hex32 .Origin}}, LENGTH = {{hex32 .Length}}
{{- end}}
}
{{end}}`

const goConstantsTmpl = `{{define "goConstants" -}}
// Code generated by etpu-gen. DO NOT EDIT.

package {{.Package}}

// Region bases and sizes in bytes.
const (
{{- range .Regions}}
	{{goName .Name}}Base = {{hex32 .Origin}}
	{{goName .Name}}Size = {{hex32 .Length}}
{{- end}}
)
{{end}}`

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	return b.String(), nil
}

// MemHeader returns the C header with a BASE and SIZE macro per region.
func MemHeader(t *region.Table) (string, error) {
	if err := checkNames(t, strings.ToUpper); err != nil {
		return "", err
	}
	return render("memHeader", t.Regions())
}

// LinkerRegions returns the linker MEMORY block. It lists cacheable memory
// and any region that asked to be linkable.
func LinkerRegions(t *region.Table) (string, error) {
	var linkable []region.Region
	for _, r := range t.Regions() {
		if r.Linker || r.Type == region.TypeCached {
			linkable = append(linkable, r)
		}
	}
	return render("linker", linkable)
}

// CSV returns one memory_region row per region in origin order.
func CSV(t *region.Table) string {
	var b strings.Builder
	b.WriteString("#--------------------------------------------------------------------------------\n")
	b.WriteString("# Auto-generated by etpu-gen. Do not edit.\n")
	b.WriteString("#--------------------------------------------------------------------------------\n")
	for _, r := range t.Regions() {
		fmt.Fprintf(&b, "memory_region,%s,0x%08x,%d,%s\n", r.Name, r.Origin, r.Length, r.Type)
	}
	return b.String()
}

// GoConstants returns a formatted Go source file declaring NameBase and
// NameSize constants in package pkg.
func GoConstants(pkg string, t *region.Table) ([]byte, error) {
	if err := checkNames(t, goName); err != nil {
		return nil, err
	}
	code, err := render("goConstants", struct {
		Package string
		Regions []region.Region
	}{pkg, t.Regions()})
	if err != nil {
		return nil, err
	}
	formatted, err := imports.Process(GoConstantsFile, []byte(code), nil)
	if err != nil {
		return nil, fmt.Errorf("goimports %s: %w", GoConstantsFile, err)
	}
	return formatted, nil
}

// WriteAll writes every artifact into dir, creating it if needed, and
// returns the paths written.
func WriteAll(dir string, t *region.Table) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	header, err := MemHeader(t)
	if err != nil {
		return nil, err
	}
	linker, err := LinkerRegions(t)
	if err != nil {
		return nil, err
	}
	goSrc, err := GoConstants(DefaultGoPackage, t)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data []byte
	}{
		{MemHeaderFile, []byte(header)},
		{LinkerFile, []byte(linker)},
		{CSVFile, []byte(CSV(t))},
		{GoConstantsFile, goSrc},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// goName converts "sram_ext" to "SramExt".
func goName(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(strings.ToLower(part[1:]))
	}
	return b.String()
}

func checkNames(t *region.Table, conv func(string) string) error {
	seen := make(map[string]string)
	for _, r := range t.Regions() {
		id := conv(r.Name)
		if other, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s and %s both become %s", ErrNameCollision, other, r.Name, id)
		}
		seen[id] = r.Name
	}
	return nil
}
