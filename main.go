// Package main provides the entry point for the Quality Master application.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"quality-master/internal/app"
	"quality-master/internal/image/cvdecode"
	"quality-master/internal/ocr"
	"quality-master/internal/remote"
	"quality-master/internal/version"
	"quality-master/ui/mainwindow"
	"quality-master/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"github.com/benbjohnson/clock"
)

const appID = "com.qualitymaster.markup"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := app.DefaultConfig()
	flag.StringVar(&cfg.ProductionOrder, "po", "", "production order; selects the storage scope and locks the field")
	flag.StringVar(&cfg.StorageDir, "store", cfg.StorageDir, "directory for saved forms (empty keeps them in memory)")
	flag.Int64Var(&cfg.StorageQuota, "quota", cfg.StorageQuota, "storage capacity in bytes (<= 0 for unlimited)")
	flag.DurationVar(&cfg.DebounceInterval, "debounce", cfg.DebounceInterval, "delay between snapshots while drawing")
	flag.IntVar(&cfg.JPEGQuality, "jpeg-quality", cfg.JPEGQuality, "re-encode quality for uploaded photos")
	flag.BoolVar(&cfg.Smoothing, "smooth", cfg.Smoothing, "smooth strokes between pointer samples")
	flag.StringVar(&cfg.RemoteURL, "remote", cfg.RemoteURL, "upsert endpoint for Submit (empty hides Submit)")
	flag.BoolVar(&cfg.OCR, "ocr", cfg.OCR, "suggest the panel serial from uploaded photos")
	exif := flag.Bool("exif", true, "honour EXIF orientation of uploaded photos")
	reload := flag.Bool("hot-reload", false, "offer a restart when the binary is rebuilt")
	flag.Parse()

	log.Printf("Starting Quality Master %s", version.String())

	st, err := cfg.OpenStore()
	if err != nil {
		log.Printf("Storage unavailable, keeping forms in memory: %v", err)
		cfg.StorageDir = ""
		st, _ = cfg.OpenStore()
	}

	var opts []app.Option
	if *exif {
		opts = append(opts, app.WithDecoder(cvdecode.WithFallback()))
	}
	session, err := app.NewSession(context.Background(), cfg, st, opts...)
	if err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}

	services := mainwindow.Services{}
	if cfg.RemoteURL != "" {
		services.Remote = remote.New(cfg.RemoteURL)
	}
	if cfg.OCR {
		reader, err := ocr.NewSerialReader()
		if err != nil {
			log.Printf("OCR disabled: %v", err)
		} else {
			defer reader.Close()
			services.OCR = reader
		}
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.QualityMasterTheme{})

	win := mainwindow.New(fyneApp, session, prefs.Load(prefs.DefaultDir()), services)
	if *reload {
		setupHotReload(win)
	}
	win.ShowAndRun()
}

// setupHotReload configures automatic restart detection when the binary is recompiled.
func setupHotReload(win *mainwindow.MainWindow) {
	reloader := app.NewHotReloader(clock.New(), 2*time.Second)
	if reloader == nil {
		log.Println("Hot reload: unable to determine executable path")
		return
	}

	log.Printf("Hot reload: watching %s (modified %s)",
		reloader.Path(), reloader.Baseline().Format("15:04:05"))

	reloader.OnNewBinary(func() {
		log.Println("Hot reload: newer binary detected")
		dialog.ShowConfirm("New Version Available",
			"The application binary has been updated.\nRestart now?",
			func(ok bool) {
				if !ok {
					reloader.ResetBaseline()
					reloader.Start()
					return
				}
				log.Println("Hot reload: saving before restart...")
				win.Close()
				if err := reloader.Restart(); err != nil {
					log.Printf("Hot reload: restart failed: %v", err)
				}
			}, win)
	})
	reloader.Start()
}
