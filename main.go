// Package main provides the entry point for the Image Annotator application.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	fyneapp "fyne.io/fyne/v2/app"

	"image-annotator/internal/app"
	"image-annotator/internal/config"
	annimage "image-annotator/internal/image"
	"image-annotator/internal/logger"
	"image-annotator/internal/project"
	"image-annotator/internal/version"
	"image-annotator/ui/mainwindow"
	"image-annotator/ui/prefs"
)

const appID = "org.example.image-annotator"

func main() {
	configPath := flag.String("config", "annotator.yaml", "path to the YAML configuration")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [image|project.ima|descriptor-url]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logr, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	logr.Info("starting", "version", version.String())

	state := app.NewState(cfg, logr)
	defer state.Close()

	a := fyneapp.NewWithID(appID)
	a.Settings().SetTheme(&app.AnnotatorTheme{})

	win := mainwindow.New(a, state, prefs.Load(), logr)
	if arg := flag.Arg(0); arg != "" {
		openArgument(win, arg)
	}
	win.ShowAndRun()
}

// openArgument opens a project, an image or a deep-zoom descriptor URL.
func openArgument(win *mainwindow.MainWindow, arg string) {
	switch {
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		win.OpenURL(arg)
	case strings.EqualFold(filepath.Ext(arg), project.Extension):
		win.LoadProject(arg)
	case annimage.IsSupportedFormat(arg):
		win.LoadImage(arg)
	default:
		log.Printf("Ignoring unsupported argument %s", arg)
	}
}
