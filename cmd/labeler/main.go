package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/scanlabel/internal/config"
	"github.com/banshee-data/scanlabel/internal/fsutil"
	"github.com/banshee-data/scanlabel/internal/journal"
	"github.com/banshee-data/scanlabel/internal/labeler"
	"github.com/banshee-data/scanlabel/internal/render"
	"github.com/banshee-data/scanlabel/internal/session"
	"github.com/banshee-data/scanlabel/internal/version"
	"github.com/banshee-data/scanlabel/internal/web"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("labeler: %v", err)
	}
}

// parseFlags loads the config file named by -config, if any, and applies
// the flags that were set explicitly on top of it.
func parseFlags(args []string) (*config.LabelerConfig, error) {
	fs := flag.NewFlagSet("labeler", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a JSON or YAML config file")
	listen := fs.String("listen", config.DefaultListen, "HTTP listen address")
	dataDir := fs.String("data", "", "Directory of scan files to open at start-up")
	labelDir := fs.String("labels", "", "Directory for label files")
	journalPath := fs.String("journal", "", "SQLite journal of label saves (empty disables)")
	halfExtent := fs.Float64("half-extent", config.DefaultHalfExtent, "Initial half width of the visible square")
	recordExt := fs.String("ext", config.DefaultRecordExt, "Extension of scan and label files")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.EmptyConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = listen
		case "data":
			cfg.DataDir = dataDir
		case "labels":
			cfg.LabelDir = labelDir
		case "journal":
			cfg.JournalPath = journalPath
		case "half-extent":
			cfg.HalfExtent = halfExtent
		case "ext":
			cfg.RecordExt = recordExt
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func plotStyle(cfg *config.LabelerConfig) render.Style {
	w, h := cfg.GetRenderSize()
	return render.Style{
		Width:     vg.Length(w) * vg.Inch,
		Height:    vg.Length(h) * vg.Inch,
		PointSize: vg.Points(cfg.GetPointSize()),
	}
}

// run wires the labeler and serves it until ctx is cancelled.
func run(ctx context.Context, cfg *config.LabelerConfig) error {
	log.Printf("labeler %s", version.String())

	plot := render.NewPlotCanvas(plotStyle(cfg))
	sc := session.Config{
		FS:         fsutil.OSFileSystem{},
		Canvas:     plot,
		HalfExtent: cfg.GetHalfExtent(),
		RecordExt:  cfg.GetRecordExt(),
	}

	var jr web.JournalReader
	if path := cfg.GetJournalPath(); path != "" {
		j, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer j.Close()
		sc.Journal = j
		jr = j
	}

	disp := labeler.New(session.New(sc),
		labeler.WithAllowedRoots(cfg.AllowedRoots...),
		labeler.WithNoticeLimit(cfg.GetNoticeLimit()),
	)
	openStartupDirs(ctx, disp, cfg)

	ws := web.NewWebServer(web.WebServerConfig{
		Address:    cfg.GetListen(),
		Dispatcher: disp,
		Plot:       plot,
		Journal:    jr,
	})
	return ws.Start(ctx)
}

// openStartupDirs selects the configured directories and loads the first
// scan. Failures become notices so the page still comes up.
func openStartupDirs(ctx context.Context, disp *labeler.Dispatcher, cfg *config.LabelerConfig) {
	if dir := cfg.GetLabelDir(); dir != "" {
		if _, err := disp.Dispatch(ctx, labeler.Event{Kind: labeler.SelectLabelDir, Path: dir}); err != nil {
			log.Printf("label directory %s: %v", dir, err)
		}
	}
	dir := cfg.GetDataDir()
	if dir == "" {
		return
	}
	if _, err := disp.Dispatch(ctx, labeler.Event{Kind: labeler.SelectDataDir, Path: dir}); err != nil {
		log.Printf("data directory %s: %v", dir, err)
		return
	}
	var first string
	disp.View(func(c *session.Controller) {
		if !c.DataCatalog().Empty() {
			first = c.DataCatalog().Name(0)
		}
	})
	if first == "" {
		disp.Notify(labeler.LevelWarning, "no scan files in "+dir)
		return
	}
	if _, err := disp.Dispatch(ctx, labeler.Event{Kind: labeler.SelectDataFile, Name: first}); err != nil {
		log.Printf("open %s: %v", first, err)
	}
}
