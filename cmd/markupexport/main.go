// Command markupexport reads stored panel markups without opening a window.
// It lists the stored scopes or writes the flattened markup of one scope as
// PNG, optionally alongside the document JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"quality-master/internal/app"
	"quality-master/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "markupexport: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("markupexport", flag.ContinueOnError)
	fs.SetOutput(stdout)
	storeDir := fs.String("store", store.DefaultDir(), "Directory holding the stored documents")
	po := fs.String("po", "", "Production order scope to export (empty selects NO_PO)")
	out := fs.String("o", "", "Output PNG path (default: markup[_<po>][_<serial>].png in the current directory)")
	jsonOut := fs.String("json", "", "Also write the document JSON to this path")
	list := fs.Bool("list", false, "List stored scopes and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *storeDir == "" {
		return errors.New("-store is required")
	}

	cfg := app.DefaultConfig()
	cfg.StorageDir = *storeDir
	cfg.ProductionOrder = *po
	st, err := cfg.OpenStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	ctx := context.Background()
	if *list {
		keys, err := st.Keys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintf(stdout, "%-40s %s\n", k, k.Order())
		}
		return nil
	}

	if _, ok, err := st.Load(ctx, cfg.ScopeKey()); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("no stored markup for %s", cfg.ScopeKey())
	}

	session, err := app.NewSession(ctx, cfg, st)
	if err != nil {
		return err
	}
	png, err := session.ExportFlattened()
	if err != nil {
		return fmt.Errorf("flatten: %w", err)
	}

	path := *out
	if path == "" {
		path = filepath.Join(".", session.ExportFilename())
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s (%d bytes)\n", path, len(png))

	if *jsonOut != "" {
		_, data, err := session.Record()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*jsonOut, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", *jsonOut)
	}
	return nil
}
