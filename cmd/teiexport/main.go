// Command teiexport prints the TEI facsimile or the shape dump of a project.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"

	"image-annotator/internal/export"
	"image-annotator/internal/project"
)

func main() {
	format := flag.String("format", "xml", "Output format: xml or json")
	highlight := flag.Bool("highlight", false, "Colour the output for a terminal")
	copyOut := flag.Bool("copy", false, "Also copy the output to the clipboard")
	outPath := flag.String("o", "", "Write to a file instead of stdout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: teiexport [-format xml|json] [-highlight] [-copy] [-o out] <project.ima>")
		os.Exit(1)
	}

	text, err := render(flag.Arg(0), *format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if *highlight && *outPath == "" {
		err = export.Highlight(out, text, *format)
	} else {
		_, err = io.WriteString(out, text)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}

	if *copyOut {
		if clipboard.Unsupported {
			fmt.Fprintln(os.Stderr, "Clipboard not available, skipping copy")
			return
		}
		if err := clipboard.WriteAll(text); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to copy to clipboard: %v\n", err)
			os.Exit(1)
		}
	}
}

// render loads the project at path and derives the requested export.
func render(path, format string) (string, error) {
	f, err := project.Load(path)
	if err != nil {
		return "", err
	}
	shapes, err := f.Shapes(nil)
	if err != nil {
		return "", fmt.Errorf("failed to decode shapes: %w", err)
	}

	switch format {
	case "xml":
		settings, err := f.Settings()
		if err != nil {
			return "", err
		}
		return export.XML(settings, shapes)
	case "json":
		return export.JSON(shapes)
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}
