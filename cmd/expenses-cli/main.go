// Command expenses-cli searches, exports, imports and tags transactions
// through the transactions API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"expenses/internal/cli"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/query"
	"expenses/internal/search"
	"expenses/internal/tagedit"
	"expenses/internal/txnclient"
)

const usage = `usage: expenses-cli <command> [flags] [args]

commands:
  search   [query]        interactive search; type key=value lines (description=coffee, tagsOp=empty, reset)
  download [query]        write matching transactions as CSV
  upload   <file|->       import transactions from CSV
  tag      <id>...        add, remove or clear tags
`

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(os.Stderr)
	logger := cli.SetupLogger(cfg, log.ComponentCLI, os.Stderr)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, _ := cli.GracefulShutdown(logger, 5*time.Second, nil)
	client := txnclient.New(cfg.BackendURL)

	var err error
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "search":
		err = runSearch(ctx, client, args, os.Stdin, os.Stdout)
	case "download":
		err = runDownload(ctx, client, args, os.Stdout)
	case "upload":
		err = runUpload(ctx, client, args, os.Stdin, os.Stdout)
	case "tag":
		err = runTag(ctx, client, args, os.Stdout)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("Command failed", "command", cmd, log.FieldError, err.Error())
		os.Exit(1)
	}
}

func runSearch(ctx context.Context, client search.Fetcher, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	window := fs.Duration("window", 300*time.Millisecond, "debounce window between keystrokes and a search")
	limit := fs.Int("limit", search.DefaultLimit, "results per search")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var mu sync.Mutex
	printResult := func(r search.Result) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "\n? %s\n", r.Query)
		if r.Err != nil {
			fmt.Fprintf(out, "error: %v\n", r.Err)
			return
		}
		printTxns(out, r.Txns)
	}

	s := search.NewSession(ctx, client, query.ParseQuery(fs.Arg(0)), search.Config{Window: *window, Limit: *limit}, printResult)
	defer s.Close()
	s.Search()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			s.Flush()
			continue
		case "quit", "exit":
			return nil
		}
		msg, ok := query.ParseMsg(line)
		if !ok {
			mu.Lock()
			fmt.Fprintf(out, "unknown input %q\n", line)
			mu.Unlock()
			continue
		}
		s.Dispatch(msg)
	}
	s.Flush()
	return scanner.Err()
}

func printTxns(out io.Writer, txns []core.Transaction) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tAMOUNT\tSOURCE\tTAGS")
	for _, t := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Description, t.Amount, t.Source, strings.Join(t.Tags, " "))
	}
	tw.Flush()
	fmt.Fprintf(out, "%d transactions\n", len(txns))
}

// Pager loads pages of transactions. *txnclient.Client satisfies it.
type Pager interface {
	FetchPage(ctx context.Context, f query.Filters, startID string, limit int) (txnclient.Page, error)
}

func runDownload(ctx context.Context, client Pager, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	pageSize := fs.Int("page", 500, "transactions per request")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pageSize < 1 || *pageSize > core.MaxLimit {
		return fmt.Errorf("page size must be between 1 and %d", core.MaxLimit)
	}
	n, err := download(ctx, client, query.ParseQuery(fs.Arg(0)), *pageSize, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "downloaded %d transactions\n", n)
	return nil
}

// download follows nextId until a short page.
func download(ctx context.Context, client Pager, f query.Filters, pageSize int, out io.Writer) (int, error) {
	w, err := newCSVWriter(out)
	if err != nil {
		return 0, err
	}
	var (
		total   int
		startID string
	)
	for {
		page, err := client.FetchPage(ctx, f, startID, pageSize)
		if err != nil {
			return total, fmt.Errorf("fetch page after %d transactions: %w", total, err)
		}
		for _, t := range page.Txns {
			if err := w.Write(t); err != nil {
				return total, fmt.Errorf("write csv: %w", err)
			}
			total++
		}
		if len(page.Txns) < pageSize || page.NextID == "" || page.NextID == startID {
			break
		}
		startID = page.NextID
	}
	return total, w.Flush()
}

// Creator stores one transaction. *txnclient.Client satisfies it.
type Creator interface {
	CreateTxn(ctx context.Context, t core.Transaction) (string, error)
}

func runUpload(ctx context.Context, client Creator, args []string, stdin io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "validate the file without uploading")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("upload needs one file argument, or - for stdin")
	}

	in := stdin
	if name := fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer f.Close()
		in = f
	}

	txns, err := readCSV(in)
	if err != nil {
		return err
	}
	if *dryRun {
		fmt.Fprintf(out, "%d transactions are valid\n", len(txns))
		return nil
	}
	n, err := upload(ctx, client, txns)
	fmt.Fprintf(out, "uploaded %d of %d transactions\n", n, len(txns))
	return err
}

func upload(ctx context.Context, client Creator, txns []core.Transaction) (int, error) {
	for i, t := range txns {
		if _, err := client.CreateTxn(ctx, t); err != nil {
			return i, fmt.Errorf("create transaction %d (%s %s): %w", i+1, t.Date, t.Description, err)
		}
	}
	return len(txns), nil
}

func runTag(ctx context.Context, client tagedit.Patcher, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("tag", flag.ContinueOnError)
	op := fs.String("op", string(core.TagAdd), "add, remove or clear")
	tags := fs.String("tags", "", "space separated tags")
	if err := fs.Parse(args); err != nil {
		return err
	}

	edit := core.TagEdit{IDs: fs.Args(), Op: core.TagEditOp(*op), Tags: tagedit.ParseTags(*tags)}.Normalized()
	if err := edit.Validate(); err != nil {
		return fmt.Errorf("invalid tag edit:\n%w", err)
	}

	res, err := tagedit.NewSubmitter(client).Submit(ctx, edit.IDs, edit.Op, edit.Tags)
	if err != nil {
		return err
	}
	if res.State != tagedit.Success {
		return errors.New(res.Details)
	}
	fmt.Fprintf(out, "%s: updated %d transactions\n", res.Details, len(edit.IDs))
	return nil
}
