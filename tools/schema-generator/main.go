package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/proctrack/config"
	// Registers the "logging" section so it appears in the schema.
	_ "github.com/grovetools/proctrack/logging"
	flag "github.com/spf13/pflag"
)

func main() {
	output := flag.StringP("output", "o", "schema/proctrack.schema.json", "output path")
	flag.Parse()

	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}
	if err := os.WriteFile(*output, append(schemaBytes, '\n'), 0o644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Wrote proctrack.yml schema to %s", *output)
}
