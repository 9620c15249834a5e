// Command etpu-gen writes the software view of a SoC's address map.
//
// Usage:
//
//	etpu-gen [flags]
//
// Flags:
//
//	-config string   SoC config file (default: built-in ULX3S build)
//	-out string      Output directory for every artifact
//	-format string   Print one artifact to stdout: header, linker, csv, go
//	-pkg string      Package name for -format go (default "regions")
//
// Examples:
//
//	# Everything into build/software
//	etpu-gen -config soc.yaml -out build/software
//
//	# Just the C header
//	etpu-gen -format header
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/etpu-project/etpu-go/pkg/gen"
	"github.com/etpu-project/etpu-go/pkg/region"
	"github.com/etpu-project/etpu-go/pkg/soc"
)

var (
	configFile = flag.String("config", "", "SoC config file (default: built-in build)")
	outDir     = flag.String("out", "", "Output directory for every artifact")
	format     = flag.String("format", "", "Print one artifact to stdout: header, linker, csv, go")
	pkg        = flag.String("pkg", gen.DefaultGoPackage, "Package name for -format go")
)

func main() {
	flag.Parse()

	if *outDir == "" && *format == "" {
		fmt.Fprintln(os.Stderr, "Error: -out or -format is required")
		flag.Usage()
		os.Exit(1)
	}

	table, err := regions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *outDir != "" {
		files, err := gen.WriteAll(*outDir, table)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Fprintf(os.Stderr, "wrote %s\n", f)
		}
	}

	if *format != "" {
		out, err := render(*format, table)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
	}
}

// regions composes the SoC so the table is the validated one software sees.
func regions() (*region.Table, error) {
	cfg := soc.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = soc.LoadConfig(*configFile); err != nil {
			return nil, err
		}
	}
	s, err := soc.Build(cfg)
	if err != nil {
		return nil, err
	}
	return s.Regions(), nil
}

func render(format string, t *region.Table) ([]byte, error) {
	switch format {
	case "header":
		s, err := gen.MemHeader(t)
		return []byte(s), err
	case "linker":
		s, err := gen.LinkerRegions(t)
		return []byte(s), err
	case "csv":
		return []byte(gen.CSV(t)), nil
	case "go":
		return gen.GoConstants(*pkg, t)
	default:
		return nil, fmt.Errorf("unknown format %q (header, linker, csv, go)", format)
	}
}
