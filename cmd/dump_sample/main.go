// dump_sample rebuilds the sample nodelist directory with cmd/seed, then
// writes a per-index summary, a full address walk and a page dump of every
// FDX file into one report.
// Run from repo root: go run ./cmd/dump_sample [report]
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"NodelistDB/config"
	fdx "NodelistDB/fdxtree"
	"NodelistDB/nodelist"
)

const (
	baseDir    = "nodelists/sample"
	reportFile = "cmd/sample_run_output.txt"
)

var trees = []fdx.TreeKind{fdx.NodeTree, fdx.UserTree, fdx.PhoneTree}

func main() {
	root := repoRoot()
	report := filepath.Join(root, reportFile)
	if len(os.Args) > 1 {
		report = os.Args[1]
	}
	f, err := os.Create(report)
	if err != nil {
		log.Fatalf("create report: %v", err)
	}
	defer f.Close()

	dir := filepath.Join(root, baseDir)
	if err := os.RemoveAll(dir); err != nil {
		log.Fatalf("clean %s: %v", dir, err)
	}

	section(f, "SEED")
	seed := exec.Command("go", "run", "./cmd/seed", baseDir)
	seed.Stdout, seed.Stderr, seed.Dir = f, f, root
	if err := seed.Run(); err != nil {
		fmt.Fprintf(f, "seed failed: %v\n", err)
		return
	}

	cfg := config.NewCfg()
	cfg.Dir = dir
	nl, err := nodelist.Open(cfg, fdx.ReadOnly)
	if err != nil {
		fmt.Fprintf(f, "open: %v\n", err)
		return
	}
	summary(f, nl)
	walk(f, nl)
	nl.Close()

	for _, kind := range trees {
		section(f, "INSPECT "+kind.FileName())
		if err := fdx.InspectIndexFileTo(f, filepath.Join(dir, kind.FileName())); err != nil {
			fmt.Fprintf(f, "inspect error: %v\n", err)
		}
	}
	fmt.Printf("Report written to %s\n", report)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n========== %s ==========\n", title)
}

// summary prints the shared header and the shape of each index, and the
// fill factor of its pages.
func summary(w io.Writer, nl *nodelist.Nodelist) {
	section(w, "SUMMARY")
	h := nl.Header()
	fmt.Fprintf(w, "revision %d.%d (db rev %d) country %d ext %q swedish=%v\n",
		h.RevisionMaj, h.RevisionMin, nl.Revision(), h.CountryCode, h.NodeExt, h.Swedish)
	for _, kind := range trees {
		info, err := nl.Info(kind)
		if err != nil {
			fmt.Fprintf(w, "  %s: %v\n", kind.FileName(), err)
			continue
		}
		fill := 0.0
		if info.Pages > 0 {
			fill = 100 * float64(info.Records) / float64(uint32(fdx.MaxRecords)*info.Pages)
		}
		size := uint64(info.Pages+1) * uint64(info.PageSize)
		fmt.Fprintf(w, "  %-13s records=%-4s pages=%-3d levels=%d root=%-3d pagelen=%d promote=%d dupes=%v fill=%.0f%% size=%s\n",
			kind.FileName(), humanize.Comma(int64(info.Records)), info.Pages, info.Levels, info.Root,
			info.PageSize, info.Promote, info.UseDupes, fill, humanize.Bytes(size))
	}
}

// walk visits every address in index order and resolves its record.
func walk(w io.Writer, nl *nodelist.Nodelist) {
	section(w, "ADDRESS WALK")
	all, err := fdx.ParsePattern("*")
	if err != nil {
		fmt.Fprintf(w, "pattern: %v\n", err)
		return
	}
	c, err := nl.FindPattern(all, nil)
	if err != nil {
		fmt.Fprintf(w, "find: %v\n", err)
		return
	}
	count := 0
	var prev fdx.Address
	for c.State() == nodelist.Active {
		if count > 0 && prev.Compare(c.Address()) >= 0 {
			fmt.Fprintf(w, "  ORDER BROKEN: %s after %s\n", c.Address(), prev)
		}
		prev = c.Address()
		count++

		rec, err := c.Record()
		if err != nil {
			fmt.Fprintf(w, "  %-14s %-6s %s: %v\n", c.Address(), c.Status(), fdx.FormatOffset(c.Offset()), err)
		} else {
			number, cost, _ := c.TranslatedNumberAndCost()
			fmt.Fprintf(w, "  %-14s %-6s %-16s %-18s %-24q cost %-5d %s\n",
				c.Address(), c.Status(), rec.Name, rec.Sysop, number, cost, fdx.FormatOffset(c.Offset()))
		}
		if _, err := nl.Continue(c); err != nil {
			fmt.Fprintf(w, "continue: %v\n", err)
			return
		}
	}
	fmt.Fprintf(w, "  %d addresses\n", count)
}

func repoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
