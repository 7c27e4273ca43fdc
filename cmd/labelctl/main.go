package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/scanlabel/internal/catalog"
	"github.com/banshee-data/scanlabel/internal/fsutil"
	"github.com/banshee-data/scanlabel/internal/journal"
	"github.com/banshee-data/scanlabel/internal/labeler"
	"github.com/banshee-data/scanlabel/internal/render"
	"github.com/banshee-data/scanlabel/internal/scan"
	"github.com/banshee-data/scanlabel/internal/security"
	"github.com/banshee-data/scanlabel/internal/synth"
	"github.com/banshee-data/scanlabel/internal/version"
	"github.com/banshee-data/scanlabel/internal/viewport"
	"github.com/banshee-data/scanlabel/internal/web"
)

const defaultURL = "http://localhost:8090"

var fsys fsutil.FileSystem = fsutil.OSFileSystem{}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	if err := dispatch(flag.Arg(0), flag.Args()[1:]); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func dispatch(command string, args []string) error {
	switch command {
	case "list":
		return handleList(args)
	case "stats":
		return handleStats(args)
	case "render":
		return handleRender(args)
	case "synth":
		return handleSynth(args)
	case "journal":
		return handleJournal(args)
	case "state":
		return handleState(args)
	case "send":
		return handleSend(args)
	case "version":
		pterm.Printfln("labelctl %s", version.String())
		return nil
	case "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Println(`labelctl - inspect scan and label files, drive a running labeler

Usage: labelctl <command> [options] [args]

Commands:
  list <dir>              List scan files with point and label counts
  stats <file>            Show counts and extent of one scan file
  render <file> <out>     Render a scan to .png/.svg/.pdf or an .html chart
  synth <dir>             Write synthetic scan files
  journal <db>            Show recent label saves from a journal
  state                   Show the state of a running labeler
  send <kind>             Send one event to a running labeler
  version                 Show version
  help                    Show this help message

Examples:
  labelctl synth -frames 20 ./runs/demo
  labelctl list ./runs/demo
  labelctl render -half-extent 10 ./runs/demo/scan_0003.txt scan3.png
  labelctl render -fit ./runs/demo/scan_0003.txt scan3.html
  labelctl send -url http://localhost:8090 key_advance
  labelctl send -name scan_0003.txt select_data_file

Flags go before positional arguments.`)
}

func requireArgs(fs *flag.FlagSet, n int, usage string) error {
	if fs.NArg() != n {
		return fmt.Errorf("usage: labelctl %s %s", fs.Name(), usage)
	}
	return nil
}

func handleList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	ext := fs.String("ext", catalog.DefaultExt, "File extension to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "[-ext .txt] <dir>"); err != nil {
		return err
	}

	cat, err := catalog.List(fsys, fs.Arg(0), *ext)
	if err != nil {
		return err
	}
	if cat.Empty() {
		pterm.Warning.Printfln("no %s files in %s", *ext, cat.Dir())
		return nil
	}

	data := pterm.TableData{{"#", "File", "Points", "Labeled", "Status"}}
	for i := 0; i < cat.Len(); i++ {
		row := []string{strconv.Itoa(i), cat.Name(i), "-", "-", "ok"}
		s, err := scan.Load(fsys, cat.Path(i))
		if err != nil {
			row[4] = err.Error()
		} else {
			st := s.Stats()
			row[2], row[3] = strconv.Itoa(st.Points), strconv.Itoa(st.Labeled)
		}
		data = append(data, row)
	}
	pterm.DefaultSection.Printfln("%s (%d files)", cat.Dir(), cat.Len())
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func handleStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "<file>"); err != nil {
		return err
	}

	s, err := scan.Load(fsys, fs.Arg(0))
	if err != nil {
		return err
	}
	st := s.Stats()
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	data := pterm.TableData{
		{"Field", "Value"},
		{"points", strconv.Itoa(st.Points)},
		{"labeled", strconv.Itoa(st.Labeled)},
		{"no return", strconv.Itoa(st.Invalid)},
		{"x", f(st.MinX) + " .. " + f(st.MaxX)},
		{"y", f(st.MinY) + " .. " + f(st.MaxY)},
		{"max range", f(st.MaxRange)},
	}
	pterm.DefaultSection.Println(filepath.Base(s.Source))
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func handleRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	halfExtent := fs.Float64("half-extent", viewport.DefaultHalfExtent, "Half width of the visible square")
	size := fs.Float64("size", 9, "Image size in inches")
	fit := fs.Bool("fit", false, "Size the window to the scan extent, ignoring -half-extent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 2, "[-half-extent 20 | -fit] [-size 9] <file> <out>"); err != nil {
		return err
	}
	in, out := fs.Arg(0), fs.Arg(1)

	s, err := scan.Load(fsys, in)
	if err != nil {
		return err
	}
	vp := viewport.New(*halfExtent)
	if *fit {
		vp = viewport.Fit(s.Stats().Extent())
	}
	window := vp.Bounds()

	if strings.EqualFold(filepath.Ext(out), ".html") {
		var buf bytes.Buffer
		if err := render.RenderChart(&buf, s, window, render.ChartOptions{}); err != nil {
			return err
		}
		if err := fsys.WriteFile(out, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write chart %s: %w", out, err)
		}
	} else {
		st := render.DefaultStyle()
		st.Width = vg.Length(*size) * vg.Inch
		st.Height = st.Width
		st.Title = filepath.Base(in)
		if err := render.SavePlot(s, window, st, out); err != nil {
			return err
		}
	}
	pterm.Success.Printfln("rendered %s to %s", filepath.Base(in), out)
	return nil
}

func handleSynth(args []string) error {
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	frames := fs.Int("frames", 10, "Number of scans to write")
	seed := fs.Int64("seed", 1, "Noise seed")
	beams := fs.Int("beams", 360, "Beams per scan")
	run := fs.String("run", "", "Optional run name appended to the directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "[-frames 10] [-seed 1] [-beams 360] [-run name] <dir>"); err != nil {
		return err
	}
	if *frames <= 0 || *beams <= 0 {
		return errors.New("frames and beams must be positive")
	}

	dir := fs.Arg(0)
	if *run != "" {
		dir = filepath.Join(dir, security.SanitizeFilename(*run))
	}
	g := synth.NewGenerator(*seed)
	g.Beams = *beams

	spinner, _ := pterm.DefaultSpinner.Start("Writing synthetic scans...")
	paths, err := synth.Run(fsys, dir, g, *frames)
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		return err
	}
	if spinner != nil {
		spinner.Success(fmt.Sprintf("wrote %d scans to %s", len(paths), dir))
	}
	return nil
}

func handleJournal(args []string) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "Number of saves to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "[-limit 20] <db>"); err != nil {
		return err
	}
	path := fs.Arg(0)
	if !fsys.Exists(path) {
		return fmt.Errorf("journal %s: %w", path, os.ErrNotExist)
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := context.Background()
	total, err := j.Count(ctx)
	if err != nil {
		return err
	}
	entries, err := j.List(ctx, *limit)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Printfln("%s (%d saves)", path, total)
	return renderEntries(entries)
}

func renderEntries(entries []journal.Entry) error {
	if len(entries) == 0 {
		pterm.Info.Println("no saves recorded")
		return nil
	}
	data := pterm.TableData{{"Saved", "Label", "Source", "#", "Labeled", "Session"}}
	for _, e := range entries {
		data = append(data, []string{
			e.SavedAt.Local().Format(time.DateTime),
			filepath.Base(e.LabelPath),
			filepath.Base(e.SourcePath),
			strconv.Itoa(e.CatalogIndex),
			fmt.Sprintf("%d/%d", e.Labeled, e.Points),
			shortID(e.SessionID),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func handleState(args []string) error {
	fs := flag.NewFlagSet("state", flag.ContinueOnError)
	url := fs.String("url", defaultURL, "Labeler base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := web.NewClient(*url, nil).State()
	if err != nil {
		return err
	}
	current := snap.CurrentName
	if current == "" {
		current = "-"
	}
	data := pterm.TableData{
		{"Field", "Value"},
		{"data dir", snap.DataDir},
		{"label dir", snap.LabelDir},
		{"files", fmt.Sprintf("%d scans, %d labels", len(snap.DataFiles), len(snap.LabelFiles))},
		{"current", fmt.Sprintf("%d %s", snap.CurrentIndex, current)},
		{"loaded", strconv.FormatBool(snap.Loaded)},
		{"labeled", fmt.Sprintf("%d/%d", snap.Stats.Labeled, snap.Stats.Points)},
		{"half extent", strconv.FormatFloat(snap.HalfExtent, 'g', -1, 64)},
	}
	if snap.Preview != "" {
		data = append(data, []string{"preview", snap.Preview})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// parseEvent builds an event from a kind name and the send flags.
func parseEvent(kind string, x, y float64, outside bool, step int, path, name string) (labeler.Event, error) {
	k, err := labeler.ParseKind(kind)
	if err != nil {
		return labeler.Event{}, err
	}
	ev := labeler.Event{Kind: k, Step: step, Path: path, Name: name}
	switch k {
	case labeler.PointerDown, labeler.PointerMove, labeler.PointerUp:
		if !outside {
			ev.X, ev.Y, ev.InAxes = x, y, true
		}
	}
	return ev, nil
}

func handleSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	url := fs.String("url", defaultURL, "Labeler base URL")
	x := fs.Float64("x", 0, "Pointer x in data coordinates")
	y := fs.Float64("y", 0, "Pointer y in data coordinates")
	outside := fs.Bool("outside", false, "Pointer position is outside the plot")
	step := fs.Int("step", 0, "Scroll step")
	path := fs.String("path", "", "Directory for select_data_dir / select_label_dir")
	name := fs.String("name", "", "File name for select_data_file / select_label_file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "[flags] <kind>"); err != nil {
		return err
	}

	ev, err := parseEvent(fs.Arg(0), *x, *y, *outside, *step, *path, *name)
	if err != nil {
		return err
	}
	out, err := web.NewClient(*url, nil).Send(ev)
	if err != nil {
		return err
	}
	if out.Notice != nil {
		switch out.Notice.Level {
		case labeler.LevelWarning:
			pterm.Warning.Println(out.Notice.Message)
		case labeler.LevelError:
			pterm.Error.Println(out.Notice.Message)
		default:
			pterm.Info.Println(out.Notice.Message)
		}
	}
	pterm.Success.Printfln("%s handled=%t index=%d half_extent=%g", out.Kind, out.Handled, out.CurrentIndex, out.HalfExtent)
	return nil
}
