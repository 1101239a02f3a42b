// Command replaylog prints the records of a location log as the replay
// provider would see them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jengzang/location-replay-go/internal/locationlog"
	"github.com/jengzang/location-replay-go/internal/simulation"
)

func main() {
	schemaName := flag.String("schema", locationlog.SchemaAuto, "schema name, or auto to detect from the first row")
	limit := flag.Int("n", 10, "number of records to print; wraps around like a replay")
	asJSON := flag.Bool("json", false, "print records as JSON lines")
	listSchemas := flag.Bool("schemas", false, "list registered schemas and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: replaylog [flags] <location-log>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	log.SetFlags(0)

	if *listSchemas {
		for _, s := range locationlog.Schemas() {
			fmt.Printf("%s (%d columns)\n  %s\n", s.Name(), s.Width(), s.Header())
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	contents, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal("Failed to read location log: ", err)
	}
	reader, err := locationlog.Open(contents, *schemaName)
	if err != nil {
		log.Fatal("Failed to open location log: ", err)
	}
	defer reader.Close()

	enc := json.NewEncoder(os.Stdout)
	for i := 0; i < *limit; i++ {
		rec, err := reader.Next()
		if err != nil {
			log.Fatalf("Record %d: %v", i+1, err)
		}
		if *asJSON {
			if err := enc.Encode(rec); err != nil {
				log.Fatal("Failed to encode record: ", err)
			}
			continue
		}
		rec.Location.IsLocationServiceEnabled = true
		fmt.Printf("%4d  %s\n", i+1, simulation.StatusText(rec.Location, rec.State))
	}
	log.Printf("schema %s, %d rows read, %d wraps", reader.Schema().Name(), reader.Rows(), reader.Cycles())
}
