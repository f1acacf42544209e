package main

import (
	"chat-hub/repositories"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// inspect dumps the chat database as a table. The server must be stopped:
// Badger holds an exclusive lock on its directory.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "", "Key prefix to scan (user:, room:, member:, msg:, counter:)")
	flag.Parse()

	if err := run(*dbPath, *prefix); err != nil {
		fmt.Fprintf(os.Stderr, "Inspect error: %v\n", err)
		os.Exit(1)
	}
}

func run(dbPath, prefix string) error {
	db, err := repositories.OpenBadger(dbPath, logs.GetLoggerFromLevel(slog.LevelError), false)
	if err != nil {
		return err
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = repositories.Scan(db, prefix, func(key string, val []byte) error {
		kind, detail := repositories.Describe(key, val)
		table.Append([]string{key, kind, detail})
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	table.Render()
	fmt.Printf("\n%d entries\n", count)
	return nil
}
