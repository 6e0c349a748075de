package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/common/logger"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/client"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"go.uber.org/zap"
)

const usage = `invctl - command line client for inv-server

Usage:
  invctl [-server URL] health [-wait 30s]
  invctl [-server URL] import -org ID -room ID FILE.xlsx
  invctl [-server URL] export -org ID [-out FILE.xlsx]
  invctl [-server URL] transfer -equipment ID -to ROOM_ID [-notes TEXT]
  invctl [-server URL] history -equipment ID
`

func main() {
	server := flag.String("server", envOr("INV_SERVER", "http://localhost:8080"), "inv-server base URL")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logger.NewLogger(level, "console", "invctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	c := client.New(*server, log)
	ctx := context.Background()

	args := flag.Args()
	switch args[0] {
	case "health":
		err = runHealth(ctx, c, args[1:])
	case "import":
		err = runImport(ctx, c, args[1:])
	case "export":
		err = runExport(ctx, c, args[1:])
	case "transfer":
		err = runTransfer(ctx, c, args[1:])
	case "history":
		err = runHistory(ctx, c, args[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// runHealth -wait keeps polling until the server answers, like a launcher waiting for start-up.
func runHealth(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	wait := fs.Duration("wait", 0, "keep polling up to this long")
	_ = fs.Parse(args)

	if *wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, *wait)
		defer cancel()
		if err := c.WaitReady(waitCtx, 500*time.Millisecond); err != nil {
			return err
		}
	} else if err := c.Health(ctx); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runImport(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	org := fs.String("org", "", "organization id")
	room := fs.String("room", "", "room id")
	_ = fs.Parse(args)
	if *org == "" || *room == "" || fs.NArg() != 1 {
		return fmt.Errorf("%w: import needs -org, -room and one file", domain.ErrValidation)
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	res, err := c.Import(ctx, *org, *room, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d of %d rows, %d failed\n", res.ImportedCount, res.Total, res.FailedCount)
	for _, e := range res.Errors {
		fmt.Printf("  row %d: %s\n", e.Row, e.Message)
	}
	if res.FailedCount > len(res.Errors) {
		fmt.Printf("  ... and %d more\n", res.FailedCount-len(res.Errors))
	}
	return nil
}

func runExport(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	org := fs.String("org", "", "organization id")
	out := fs.String("out", "", "output file (default: name suggested by the server)")
	_ = fs.Parse(args)
	if *org == "" {
		return fmt.Errorf("%w: export needs -org", domain.ErrValidation)
	}

	data, name, err := c.Export(ctx, *org)
	if err != nil {
		return err
	}
	if *out == "" {
		*out = name
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *out, len(data))
	return nil
}

func runTransfer(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	eq := fs.String("equipment", "", "equipment id")
	to := fs.String("to", "", "destination room id")
	notes := fs.String("notes", "", "free text stored with the history row")
	_ = fs.Parse(args)
	if *eq == "" || *to == "" {
		return fmt.Errorf("%w: transfer needs -equipment and -to", domain.ErrValidation)
	}

	res, err := c.Transfer(ctx, *eq, *to, *notes)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s -> %s\n", res.Summary, res.OldCode, res.NewCode)
	return nil
}

func runHistory(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	eq := fs.String("equipment", "", "equipment id")
	_ = fs.Parse(args)
	if *eq == "" {
		return fmt.Errorf("%w: history needs -equipment", domain.ErrValidation)
	}

	rows, err := c.History(ctx, *eq)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no transfers")
		return nil
	}
	for _, r := range rows {
		fmt.Printf("%s  %s -> %s  %s -> %s  %s\n", r.TransferredAt, r.FromRoomName, r.ToRoomName, r.OldCode, r.NewCode, r.Notes)
	}
	return nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return 2
	case errors.Is(err, domain.ErrNotFound):
		return 3
	case errors.Is(err, domain.ErrNoOp), errors.Is(err, domain.ErrConflict):
		return 4
	}
	return 1
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
