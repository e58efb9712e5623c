// Package main exports the route network held in the schedule store to
// CSV format: flight_number,departure,arrival,days,std,sta. The output
// feeds network-planning spreadsheets that expect one row per leg.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"

	"schedlink/internal/sched"
	"schedlink/internal/storage"
)

func main() {
	backend := flag.String("backend", "sqlite", "Storage backend: sqlite or postgres")
	sqlitePath := flag.String("db", "schedlink.db", "SQLite database path")

	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "schedlink", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDB := flag.String("pg-db", "schedlink", "PostgreSQL database")

	output := flag.String("output", "", "Output CSV file (default: stdout)")
	showStats := flag.Bool("stats", false, "Show statistics only, don't export")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	ctx := context.Background()

	db, err := storage.Open(ctx, storage.Config{
		Backend:    *backend,
		SQLitePath: *sqlitePath,
		Postgres: storage.PostgresConfig{
			Host:     *pgHost,
			Port:     *pgPort,
			Database: *pgDB,
			User:     *pgUser,
			Password: *pgPassword,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	records, err := db.ListRecords(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing records: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "No schedule records found\n")
		os.Exit(0)
	}

	if *showStats {
		showRouteStats(records)
		return
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Exporting %d legs to CSV\n", len(records))
	}

	var writer *csv.Writer
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = file.Close() }()
		writer = csv.NewWriter(file)
	} else {
		writer = csv.NewWriter(os.Stdout)
	}

	for _, rec := range records {
		row := []string{
			rec.FlightNumber,
			rec.DepartureStation,
			rec.ArrivalStation,
			rec.DaysOfOperation.String(),
			rec.STD,
			rec.STA,
		}
		if err := writer.Write(row); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing row: %v\n", err)
			os.Exit(1)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing CSV: %v\n", err)
		os.Exit(1)
	}

	if *verbose && *output != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d legs to %s\n", len(records), *output)
	}
}

// showRouteStats summarises the stored network: city pairs, weekly
// frequencies and the fleet mix.
func showRouteStats(records []sched.ScheduleRecord) {
	type pairStats struct {
		legs   int
		weekly int
	}
	pairs := make(map[string]*pairStats)
	fleet := make(map[string]int)
	weeklyTotal := 0

	for _, rec := range records {
		key := rec.DepartureStation + "-" + rec.ArrivalStation
		p := pairs[key]
		if p == nil {
			p = &pairStats{}
			pairs[key] = p
		}
		p.legs++
		freq := len(rec.DaysOfOperation.Days())
		p.weekly += freq
		weeklyTotal += freq
		if rec.AircraftType != "" {
			fleet[rec.AircraftType]++
		}
	}

	fmt.Println("Route Network Statistics")
	fmt.Println("────────────────────────")
	fmt.Printf("Schedule legs:      %d\n", len(records))
	fmt.Printf("City pairs:         %d\n", len(pairs))
	fmt.Printf("Weekly departures:  %d\n", weeklyTotal)

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if pairs[keys[i]].weekly != pairs[keys[j]].weekly {
			return pairs[keys[i]].weekly > pairs[keys[j]].weekly
		}
		return keys[i] < keys[j]
	})
	if len(keys) > 10 {
		keys = keys[:10]
	}

	fmt.Println("\nTop City Pairs by Weekly Frequency:")
	fmt.Printf("%-10s %6s %8s\n", "Pair", "Legs", "Weekly")
	for _, k := range keys {
		fmt.Printf("%-10s %6d %8d\n", k, pairs[k].legs, pairs[k].weekly)
	}

	if len(fleet) > 0 {
		types := make([]string, 0, len(fleet))
		for t := range fleet {
			types = append(types, t)
		}
		sort.Strings(types)
		fmt.Println("\nFleet Mix:")
		fmt.Printf("%-10s %6s\n", "Aircraft", "Legs")
		for _, t := range types {
			fmt.Printf("%-10s %6d\n", t, fleet[t])
		}
	}
}
