package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jaki95/dj-cue-converter/internal/domain"
	"github.com/jaki95/dj-cue-converter/internal/serato"
	"github.com/jaki95/dj-cue-converter/internal/serato/crate"
	"github.com/jaki95/dj-cue-converter/internal/tagio"
)

// inspection is the JSON printed by the inspect command.
type inspection struct {
	Track    *domain.Track    `json:"track"`
	Tags     map[string]int   `json:"tags"`
	Warnings []domain.Warning `json:"warnings,omitempty"`
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the metadata and decoded Serato tags of an audio file as JSON",
		ArgsUsage: "<audio file>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("inspect expects exactly one audio file", 2)
			}
			f, err := tagio.Read(c.Args().First())
			if err != nil {
				return err
			}

			collector := domain.NewCollector()
			serato.ReadTrack(f.Track, f.Serato, collector)

			out := inspection{Track: f.Track, Tags: make(map[string]int), Warnings: collector.Warnings()}
			for tag, blob := range f.Serato {
				name, ok := tag.Name(f.Track.Format)
				if !ok {
					name = tag.String()
				}
				out.Tags[name] = len(blob)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func crateCommand() *cli.Command {
	return &cli.Command{
		Name:      "crate",
		Usage:     "List the track paths of a Serato crate",
		ArgsUsage: "<crate file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "anchor", Usage: "resolve paths against this directory"},
			&cli.StringFlag{Name: "relative", Usage: "leading directories to drop from track paths"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("crate expects exactly one crate file", 2)
			}
			f, err := os.Open(c.Args().First())
			if err != nil {
				return err
			}
			defer f.Close()

			fields, err := crate.Read(f)
			if err != nil {
				return err
			}
			paths := crate.TrackPaths(fields)
			if c.IsSet("anchor") || c.IsSet("relative") {
				for i, p := range paths {
					paths[i] = domain.ResolveLocation(p, c.String("anchor"), c.String("relative"))
				}
			}

			fmt.Printf("%s (%d tracks)\n", crateVersion(fields), len(paths))
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}
}

func crateVersion(fields []crate.Field) string {
	for _, f := range fields {
		if f.ID == crate.FieldVersion {
			return f.Text
		}
	}
	return "unknown crate version"
}
