package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"github.com/hupe1980/binrec"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newCompressCmd(a *app) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "compress FILE...",
		Short: "Convert plain record files into compressed segments",
		Long: `Convert plain record files into compressed segments.

Every FILE is copied record by record into FILE.gz (or FILE.jz1, FILE.jz2 ...
once it outgrows the segment limit) and removed afterwards. Empty files are
left alone.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("jobs") && a.cfg.Jobs > 0 {
				jobs = a.cfg.Jobs
			}
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for _, name := range args {
				g.Go(func() error {
					return binrec.CompressFile(ctx, name, a.fileOptions(ctx)...)
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "files compressed in parallel")
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	var (
		limit int
		words bool
	)
	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Print the header of every record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := binrec.Open(args[0], a.fileOptions(cmd.Context())...)
			if err != nil {
				return err
			}
			if err := dump(cmd.OutOrStdout(), f, limit, words); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many records, 0 for all")
	cmd.Flags().BoolVarP(&words, "words", "w", false, "print the raw words of every record")
	return cmd
}

func dump(out io.Writer, f *binrec.File, limit int, words bool) error {
	w := bufio.NewWriter(out)
	for n := 0; limit <= 0 || n < limit; n++ {
		ok, err := f.ReadRecord()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fmt.Fprintf(w, "%d type=%d version=%d words=%d", n, f.Type(), f.Version(), f.Words())
		if words {
			for _, word := range f.RawWords() {
				fmt.Fprintf(w, " %016X", word)
			}
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

// typeStats counts the records of one type and version.
type typeStats struct {
	Type    uint8 `json:"type"`
	Version uint8 `json:"version"`
	Records int64 `json:"records"`
	Words   int64 `json:"words"`
}

// fileStats summarizes a record file.
type fileStats struct {
	Name             string      `json:"name"`
	Records          int64       `json:"records"`
	Words            int64       `json:"words"`
	Bytes            int64       `json:"bytes"`
	CompressionRatio float64     `json:"compression_ratio,omitempty"`
	Segments         []string    `json:"segments,omitempty"`
	Types            []typeStats `json:"types"`
}

func collectStats(f *binrec.File) (fileStats, error) {
	st := fileStats{Name: f.Name()}
	byKey := map[uint16]*typeStats{}
	for {
		ok, err := f.ReadRecord()
		if err != nil {
			return st, err
		}
		if !ok {
			break
		}
		key := uint16(f.Type())<<8 | uint16(f.Version())
		ts := byKey[key]
		if ts == nil {
			ts = &typeStats{Type: f.Type(), Version: f.Version()}
			byKey[key] = ts
		}
		ts.Records++
		ts.Words += int64(f.Words())
		st.Records++
		st.Words += int64(f.Words())
	}
	st.Bytes = st.Words * 8
	st.CompressionRatio = f.CompressionRatio()

	st.Types = make([]typeStats, 0, len(byKey))
	for _, ts := range byKey {
		st.Types = append(st.Types, *ts)
	}
	sort.Slice(st.Types, func(i, j int) bool {
		if st.Types[i].Type != st.Types[j].Type {
			return st.Types[i].Type < st.Types[j].Type
		}
		return st.Types[i].Version < st.Types[j].Version
	})
	return st, nil
}

func (st fileStats) writeText(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "file\t%s\n", st.Name)
	fmt.Fprintf(tw, "records\t%d\n", st.Records)
	fmt.Fprintf(tw, "words\t%d (%s)\n", st.Words, humanize.IBytes(uint64(st.Bytes)))
	if st.CompressionRatio > 0 {
		fmt.Fprintf(tw, "ratio\t%.1f%%\n", st.CompressionRatio)
	}
	for _, seg := range st.Segments {
		fmt.Fprintf(tw, "segment\t%s\n", seg)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "TYPE\tVERSION\tRECORDS\tWORDS")
	for _, ts := range st.Types {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", ts.Type, ts.Version, ts.Records, ts.Words)
	}
	return tw.Flush()
}

func newStatCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stat FILE",
		Short: "Count records per type and version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := binrec.Open(args[0], a.fileOptions(cmd.Context())...)
			if err != nil {
				return err
			}
			st, err := collectStats(f)
			if err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			st.Segments = binrec.Segments(args[0], a.fileOptions(cmd.Context())...)

			if asJSON {
				data, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			return st.writeText(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists FILE",
		Short: "Exit with status 0 if the file exists in any form, 1 otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if binrec.Exists(args[0], a.fileOptions(cmd.Context())...) {
				return nil
			}
			return &exitError{code: 1}
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm FILE...",
		Short: "Remove files together with all of their compressed segments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := binrec.Remove(name, a.fileOptions(cmd.Context())...); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
