// Command schedlink is the operator CLI for the schedule message
// gateway.
//
// Usage:
//
//	schedlink import -input schedule.ssim [-apply]
//	schedlink export -output schedule.ssim [-aircraft A320] [-carrier HZ] [-season S25]
//	schedlink msg -input message.txt [-apply]
//	schedlink send -action TIM -flight HZ100 -date 15MAR25 -changes changes.json
//	schedlink log [-direction inbound] [-action TIM] [-flight HZ100]
//
// Storage and carrier defaults come from the environment (see
// internal/config); a .env file in the working directory is honoured.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"schedlink/internal/asm"
	"schedlink/internal/config"
	"schedlink/internal/gateway"
	"schedlink/internal/msglog"
	"schedlink/internal/reconcile"
	"schedlink/internal/sched"
	"schedlink/internal/ssim"
	"schedlink/internal/storage"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "schedlink - schedule message gateway:")
	fmt.Fprintln(w, "  import  - parse a bulk schedule file, preview or apply it")
	fmt.Fprintln(w, "  export  - generate a bulk schedule file from the store")
	fmt.Fprintln(w, "  msg     - process one inbound ASM/SSM message")
	fmt.Fprintln(w, "  send    - compose and log an outbound ASM/SSM message")
	fmt.Fprintln(w, "  log     - query the message log")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'schedlink <command> -h' for command flags.")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	zl, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	ctx := context.Background()
	cfg := config.Load()

	switch strings.ToLower(os.Args[1]) {
	case "import":
		runImport(ctx, cfg, logger, os.Args[2:])
	case "export":
		runExport(ctx, cfg, os.Args[2:])
	case "msg":
		runMsg(ctx, cfg, logger, os.Args[2:])
	case "send":
		runSend(ctx, cfg, logger, os.Args[2:])
	case "log":
		runLog(ctx, cfg, os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func openBackend(ctx context.Context, cfg config.Config) storage.Backend {
	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open storage: %v\n", err)
		os.Exit(1)
	}
	return db
}

func runImport(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	inPath := fs.String("input", "", "Bulk schedule file (required)")
	doApply := fs.Bool("apply", false, "Apply the batch instead of only previewing")
	_ = fs.Parse(args)

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "import: -input is required")
		os.Exit(2)
	}
	content, err := os.ReadFile(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}

	db := openBackend(ctx, cfg)
	defer db.Close()
	proc := gateway.New(db, db, logger)

	batch, err := proc.ImportPreview(ctx, string(content))
	if err != nil {
		fmt.Fprintf(os.Stderr, "classify: %v\n", err)
		os.Exit(1)
	}

	printBatch(batch)

	if !*doApply {
		fmt.Println("\nPreview only; re-run with -apply to commit.")
		return
	}

	res := proc.ImportApply(ctx, batch)
	fmt.Printf("\nApplied: new=%d updated=%d unchanged=%d errors=%d\n",
		res.New, res.Updated, res.Unchanged, res.Errors)
	for _, p := range res.Problems {
		fmt.Printf("  problem: %s\n", p)
	}
}

func printBatch(batch *reconcile.Batch) {
	fmt.Printf("Carrier %s season %s: %d records, %d line errors\n",
		batch.Carrier, batch.Season, len(batch.Items), len(batch.Errors))
	for _, item := range batch.Items {
		switch item.Class {
		case reconcile.ClassUpdated:
			fmt.Printf("  %-9s %s %s-%s (%s)\n", item.Class, item.Record.FlightNumber,
				item.Record.DepartureStation, item.Record.ArrivalStation,
				strings.Join(item.Diff, ", "))
		case reconcile.ClassError:
			fmt.Printf("  %-9s %s: %s\n", item.Class, item.Record.FlightNumber, item.Err)
		default:
			fmt.Printf("  %-9s %s %s-%s\n", item.Class, item.Record.FlightNumber,
				item.Record.DepartureStation, item.Record.ArrivalStation)
		}
	}
	for _, e := range batch.Errors {
		fmt.Printf("  line %d: %s\n", e.Line, e.Message)
	}
}

func runExport(ctx context.Context, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outPath := fs.String("output", "", "Output file (default: stdout)")
	aircraft := fs.String("aircraft", "", "Only include legs with this aircraft type")
	carrier := fs.String("carrier", cfg.Carrier, "Carrier code for the header")
	season := fs.String("season", cfg.Season, "Season code for the header")
	_ = fs.Parse(args)

	db := openBackend(ctx, cfg)
	defer db.Close()

	records, err := db.ListRecords(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list records: %v\n", err)
		os.Exit(1)
	}

	content, count, err := ssim.Generate(ssim.GenerateOptions{
		Carrier:      *carrier,
		Season:       *season,
		AircraftType: *aircraft,
	}, records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		os.Exit(1)
	}

	if *outPath == "" {
		fmt.Print(content)
	} else if err := os.WriteFile(*outPath, []byte(content), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d leg records written\n", count)
}

func runMsg(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger, args []string) {
	fs := flag.NewFlagSet("msg", flag.ExitOnError)
	inPath := fs.String("input", "", "Message file (default: stdin)")
	doApply := fs.Bool("apply", false, "Apply the message instead of only previewing")
	_ = fs.Parse(args)

	var content []byte
	var err error
	if *inPath == "" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(*inPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "read message: %v\n", err)
		os.Exit(1)
	}

	db := openBackend(ctx, cfg)
	defer db.Close()
	proc := gateway.New(db, db, logger)

	in, err := proc.ProcessInbound(ctx, string(content))
	if err != nil {
		fmt.Fprintf(os.Stderr, "process: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Entry %d: %s %s", in.EntryID, in.Message.ActionCode, in.Message.FlightNumber)
	if !in.Message.FlightDate.IsZero() {
		fmt.Printf("/%s", sched.FormatWireDate(in.Message.FlightDate))
	}
	fmt.Println()
	for field, ch := range in.Message.Changes {
		fmt.Printf("  %s: %q -> %q\n", field, ch.From, ch.To)
	}
	for _, e := range in.Message.Errors {
		fmt.Printf("  parse error: %s\n", e)
	}
	if in.Resolution.Err != "" {
		fmt.Printf("  resolution: %s\n", in.Resolution.Err)
	}

	if !*doApply {
		fmt.Println("\nPreview only; re-run with -apply to commit.")
		return
	}

	outcome, err := proc.Apply(ctx, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rejected: %v\n", err)
		os.Exit(1)
	}
	if outcome.Warning != "" {
		fmt.Printf("Applied with warning: %s\n", outcome.Warning)
	} else {
		fmt.Println("Applied.")
	}
	for field, v := range outcome.Updates {
		fmt.Printf("  %s = %s\n", field, v)
	}
}

func runSend(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	msgType := fs.String("type", "ASM", "Message type: ASM or SSM")
	action := fs.String("action", "", "Action code (required)")
	flight := fs.String("flight", "", "Flight number, e.g. HZ100 (required)")
	date := fs.String("date", "", "Flight date as DDMMMYY, e.g. 15MAR25")
	changesPath := fs.String("changes", "", "JSON file with the change-set")
	_ = fs.Parse(args)

	if *action == "" || *flight == "" {
		fmt.Fprintln(os.Stderr, "send: -action and -flight are required")
		os.Exit(2)
	}

	in := asm.Intent{
		MessageType:  sched.MessageType(strings.ToUpper(*msgType)),
		ActionCode:   sched.ActionCode(strings.ToUpper(*action)),
		FlightNumber: strings.ToUpper(*flight),
		Changes:      sched.ChangeSet{},
	}
	if *date != "" {
		d, err := sched.ParseWireDate(strings.ToUpper(*date))
		if err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			os.Exit(2)
		}
		in.FlightDate = d
	}
	if *changesPath != "" {
		b, err := os.ReadFile(*changesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read changes: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(b, &in.Changes); err != nil {
			fmt.Fprintf(os.Stderr, "parse changes: %v\n", err)
			os.Exit(1)
		}
	}

	db := openBackend(ctx, cfg)
	defer db.Close()
	proc := gateway.New(db, db, logger)

	raw, id, err := proc.SendOutbound(ctx, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Logged as entry %d:\n%s", id, raw)
}

func runLog(ctx context.Context, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	direction := fs.String("direction", "", "Filter by direction: inbound or outbound")
	action := fs.String("action", "", "Filter by action code")
	flight := fs.String("flight", "", "Filter by flight number")
	_ = fs.Parse(args)

	db := openBackend(ctx, cfg)
	defer db.Close()

	entries, err := db.Query(ctx, msglog.Filter{
		Direction:    msglog.Direction(strings.ToLower(*direction)),
		ActionCode:   sched.ActionCode(strings.ToUpper(*action)),
		FlightNumber: strings.ToUpper(*flight),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query log: %v\n", err)
		os.Exit(1)
	}

	for _, e := range entries {
		fmt.Printf("%6d  %-8s %-3s %-8s %-10s %s\n",
			e.ID, e.Direction, e.ActionCode, e.FlightNumber, e.Status,
			e.CreatedAt.Format("2006-01-02 15:04"))
		if e.RejectReason != "" {
			fmt.Printf("        reject reason: %s\n", e.RejectReason)
		}
	}
}
