//go:build mage

// Package main contains Mage build targets for cohort-engine developer tooling.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the pipeline expects.
var projectDirs = []string{
	"config",
	"data_demo/interim",
	"outputs/cohort",
	"outputs/labels",
	"outputs/index",
}

// Init creates the project directory structure for the pipeline.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "cohort-engine"
	cmdPkg  = "./cmd/cohort-engine"
)

var binPath = filepath.Join(binDir, binName)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	if err := sh.RunV("go", "build", "-o", binPath, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", binPath)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Stats prints Go production and test line counts.
func Stats() error {
	prod, test, err := countGoLines(".")
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)
	return nil
}

// countGoLines counts non-blank lines in Go files under root, split into
// production and test files.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range bytes.Split(data, []byte("\n")) {
			if len(bytes.TrimSpace(line)) > 0 {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}

// Clean removes the binary and generated pipeline outputs.
func Clean() error {
	for _, dir := range []string{binDir, "outputs", "data_demo/interim"} {
		if err := sh.Rm(dir); err != nil {
			return err
		}
	}
	return nil
}

// Demo runs the whole demo pipeline end to end.
type Demo mg.Namespace

// Data writes a synthetic dataset into data_demo/interim.
func (Demo) Data() error {
	mg.Deps(Build, Init)
	return sh.RunV(binPath, "generate-demo")
}

// Cohort builds outputs/cohort/cohort.csv from the demo data.
func (Demo) Cohort() error {
	mg.SerialDeps(Demo.Data)
	return sh.RunV(binPath, "build-cohort")
}

// Labels labels the demo cohort and records the run.
func (Demo) Labels() error {
	mg.SerialDeps(Demo.Cohort)
	return sh.RunV(binPath, "compute-labels", "--record", "--metrics-file", "outputs/index/cohort.prom")
}
