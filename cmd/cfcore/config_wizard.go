package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jxwalker/cfcore/internal/config"
	"github.com/jxwalker/cfcore/internal/configwizard"
)

func handleConfigInit(args []string) error {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	out := fs.String("out", "", "write the config here instead of stdout")
	force := fs.Bool("force", false, "overwrite an existing --out file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out != "" && !*force {
		if _, err := os.Stat(*out); err == nil {
			return fmt.Errorf("%s exists; pass --force to overwrite", *out)
		}
	}
	m, err := tea.NewProgram(configwizard.New(nil)).Run()
	if err != nil {
		return err
	}
	w, ok := m.(*configwizard.Wizard)
	if !ok {
		return errors.New("config init: unexpected model")
	}
	b := w.YAML()
	if b == nil {
		return errors.New("config init: cancelled")
	}
	if *out == "" {
		_, err := os.Stdout.Write(b)
		return err
	}
	if err := config.EnsureDir(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, b, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
	return nil
}
