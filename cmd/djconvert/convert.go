package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/jaki95/dj-cue-converter/config"
	"github.com/jaki95/dj-cue-converter/internal/convert"
	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/progress"
	"github.com/jaki95/dj-cue-converter/internal/storage"
)

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a playlist to another program's library format",
		ArgsUsage: "<input>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Aliases: []string{"f"}, Usage: "source program (serato, rekordbox, traktor)"},
			&cli.StringFlag{Name: "from-version", Usage: "source program version, e.g. 3.2.4"},
			&cli.StringFlag{Name: "to", Aliases: []string{"t"}, Usage: "target program (serato, rekordbox, traktor)"},
			&cli.StringFlag{Name: "to-version", Usage: "target program version, e.g. 7.1.3"},
			&cli.StringFlag{Name: "playlist", Aliases: []string{"p"}, Usage: "playlist name inside the input document"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file; derived from the input name when empty"},
			&cli.StringFlag{Name: "anchor", Usage: "directory track paths are resolved against"},
			&cli.StringFlag{Name: "relative", Usage: "leading directories to drop from track paths"},
			&cli.StringFlag{Name: "overwrite", Usage: "replace existing Serato tags: never or always"},
			&cli.StringFlag{Name: "volume", Usage: "Traktor volume name of the music drive"},
		},
		Action: runConvert,
	}
}

func runConvert(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("convert expects exactly one input file", 2)
	}
	input := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyConvertFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	trans, err := cfg.Transformation()
	if err != nil {
		return err
	}

	name := c.String("playlist")
	if name == "" {
		if trans.Source.Software != domain.SoftwareSerato {
			return cli.Exit(fmt.Sprintf("--playlist is required for %s documents", trans.Source.Software), 2)
		}
		name = convert.CrateName(input)
	}

	dir := filepath.Dir(input)
	store, err := storage.NewLocalFileStorage(dir, dir, os.TempDir())
	if err != nil {
		return err
	}
	output, renamed, err := outputFor(store, input, c.String("output"), trans.Target.Software)
	if err != nil {
		return err
	}

	in, err := store.GetReader(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()
	out, err := store.GetWriter(output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	stdout := ansi.NewAnsiStdout()
	tracker := progress.NewProgressTracker()
	bar := newProgressBar(stdout)
	detach := tracker.AddListener(func(e progress.Event) {
		if e.TrackDetails == nil {
			return
		}
		bar.ChangeMax(e.TrackDetails.TotalTracks)
		bar.Set(e.TrackDetails.TrackNumber)
	})

	result, err := convert.NewConverter(cfg.ConvertOptions()).Convert(ctx, in, out, name, trans, tracker)
	detach()
	if err != nil {
		storage.Abort(out)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	bar.Finish()
	fmt.Fprintln(stdout)

	warnings := result.Warnings
	if renamed {
		warnings = append(warnings, domain.Warning{
			Kind:    domain.WarnOutputRenamed,
			Path:    output,
			Message: "output file already exists, writing to a new name",
		})
	}
	printSummary(stdout, result, output, warnings)
	return nil
}

// applyConvertFlags overrides the configured conversion settings with the
// flags given on the command line.
func applyConvertFlags(c *cli.Context, cfg *config.Config) {
	set := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	set("from", &cfg.Conversion.Source)
	set("from-version", &cfg.Conversion.SourceVersion)
	set("to", &cfg.Conversion.Target)
	set("to-version", &cfg.Conversion.TargetVersion)
	set("anchor", &cfg.Conversion.Anchor)
	set("relative", &cfg.Conversion.Relative)
	set("overwrite", &cfg.Conversion.Overwrite)
	set("volume", &cfg.Conversion.Volume)
}

// outputFor picks the output file. An explicit name is used as given;
// otherwise the input stem gets the target's extension and a numeric
// suffix when that file exists.
func outputFor(store storage.Storage, input, explicit string, target domain.Software) (string, bool, error) {
	if explicit != "" {
		return explicit, false, nil
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return store.OutputPath(stem, convert.Extension(target))
}

func newProgressBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Converting tracks...[reset]"),
	)
}

func printSummary(w io.Writer, result *convert.Result, output string, warnings []domain.Warning) {
	fmt.Fprintf(w, "Converted %d tracks of %q to %s\n", len(result.Playlist.Tracks), result.Playlist.Name, output)
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\x1b[33m%d warnings:\x1b[0m\n", len(warnings))
	for _, warning := range warnings {
		fmt.Fprintf(w, "  %s\n", warning)
	}
}
