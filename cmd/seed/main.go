// Seed program: creates a sample nodelist directory with a text nodelist,
// a point list, private FDNODE.FDA entries and a dial table, then builds
// all three indices.
// Run: go run ./cmd/seed [dir]
// Then inspect: <dir>/NODELIST.FDX, USERLIST.FDX and PHONE.FDX.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"NodelistDB/config"
	dm "NodelistDB/datafile_manager"
	fdx "NodelistDB/fdxtree"
	"NodelistDB/logger"
	"NodelistDB/nodelist"
)

const baseDir = "nodelists/sample"

type line struct {
	addr  string
	route string
	text  string
}

// A small two-zone nodelist; the route is the hub or host mail goes through.
var nodelistLines = []line{
	{"1:1/0", "1:1/0", "Zone,1,North_America,Somewhere_USA,Zone_Coord,1-800-555-0100,33600,CM,XA,V34"},
	{"1:100/0", "1:100/0", "Host,100,Net_100,Springfield_IL,Net_Host,1-217-555-0100,9600,CM,XA"},
	{"1:100/1", "1:100/0", "Hub,1,Springfield_Hub,Springfield_IL,Bob_Jones,1-217-555-0101,9600,XA"},
	{"1:100/2", "1:100/1", ",2,Corn_Belt_BBS,Springfield_IL,John_Smith,1-217-555-0102,2400,CM"},
	{"1:100/3", "1:100/1", "Hold,3,Lake_View,Chatham_IL,Mary_Smith,1-217-555-0103,14400,V32B"},
	{"1:100/4", "1:100/1", "Down,4,Prairie_Node,Auburn_IL,Ed_Smithers,-Unpublished-,300"},
	{"1:200/0", "1:200/0", "Host,200,Net_200,Portland_OR,Ann_Lee,1-503-555-0200,9600,XA"},
	{"1:200/7", "1:200/0", "Pvt,7,Hidden_Cove,Portland_OR,Pat_Kim,-Unpublished-,9600"},
	{"2:2/0", "2:2/0", "Zone,2,Europe,Somewhere_EU,Zone_Two_Coord,44-20-7946-0000,33600,CM,V34"},
	{"2:250/0", "2:250/0", "Host,250,Net_250,London,Ian_Moor,44-20-7946-0250,33600,CM,V34"},
	{"2:250/1", "2:250/0", ",1,Thames_BBS,London,Kate_Lane,44-20-7946-0251,28800,XA"},
	{"2:250/2", "2:250/0", ",2,Northern_Line,Manchester,Tom_Hale,44-161-555-0252,14400,CM"},
	{"2:443/0", "2:443/0", "Host,443,Net_443,Stockholm,Lars_Berg,46-8-555-4430,33600,CM"},
	{"2:443/13", "2:443/0", ",13,Baltic_Gate,Uppsala,Eva_Lind,46-18-555-0013,33600,CM,V34"},
}

var pointLines = []line{
	{"1:100/2.1", "1:100/2", "Point,1,Smith_Point,Springfield_IL,Jane_Smith,-Unpublished-,300"},
	{"1:100/2.2", "1:100/2", "Point,2,Smith_Laptop,Springfield_IL,Jim_Smith,-Unpublished-,9600"},
	{"2:250/1.5", "2:250/1", "Point,5,Lane_Point,London,Amy_Lane,000-10-0-0-5,33600"},
}

var privateNodes = []dm.NodeRecord{
	{Status: uint8(fdx.StatusPrivate), Zone: 2, Net: 443, Node: 90, RoutNet: 443, Cost: 0xFFFE,
		Capability: nodelist.CapabilityFor(1, "CM,V34,XA"), MaxBaud: nodelist.MaxBaudFor(1, 33600),
		Name: "Archipelago", Telephone: "46-8-555-0090", Location: "Stockholm", User: "Nils Ek"},
	{Status: uint8(fdx.StatusPrivate), Zone: 2, Net: 250, Node: 99, RoutNet: 250, Cost: 12,
		Capability: nodelist.CapabilityFor(1, "V32B,V42B"), MaxBaud: nodelist.MaxBaudFor(1, 14400),
		Name: "Back Room", Telephone: "44-20-7946-0099", Location: "London", User: "Sam Reed"},
}

var dialTable = []struct {
	match, xlt string
	cost       uint16
}{
	{"DOM", "0", 20},
	{"INTL", "00", 120},
	{"44-161-", "0161-", 30},
	{"44-20-7946-", "=", 10},
	{"000-", "Internet/", 0},
	{"46-", "=", 80},
}

func main() {
	dir := baseDir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}

	cfg := config.NewCfg()
	cfg.Dir = dir
	cfg.Extension = "123"
	cfg.CountryCode = 44
	logger.InitLogger(cfg.LogConfig())

	nl, err := nodelist.Open(cfg, fdx.Destroy)
	if err != nil {
		log.Fatalf("open %s: %v", dir, err)
	}
	defer nl.Close()

	fmt.Println("Building indices in", dir)
	for _, l := range nodelistLines {
		index(nl, dm.NodelistFile, l)
	}
	for _, l := range pointLines {
		index(nl, dm.FDPointFile, l)
	}
	for i := range privateNodes {
		r := &privateNodes[i]
		off, err := nl.Data().AppendNodeRecord(r)
		if err != nil {
			log.Fatalf("append FDNODE.FDA: %v", err)
		}
		file, pos := dm.SplitOffset(off)
		a := fdx.Address{Zone: r.Zone, Net: r.Net, Node: r.Node, Point: r.Point}
		status := fdx.NodeStatus(r.Status)
		if _, err := nl.AddNode(a, r.RoutNet, r.RoutNode, status, file, pos); err != nil {
			log.Fatalf("index %s: %v", a, err)
		}
		if _, err := nl.AddUser(a, r.User, status, file, pos); err != nil {
			log.Fatalf("index %s: %v", r.User, err)
		}
	}
	for _, d := range dialTable {
		if _, err := nl.AddPhone(d.match, d.xlt, d.cost); err != nil {
			log.Fatalf("dial %s: %v", d.match, err)
		}
	}
	if err := nl.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}

	for _, kind := range []fdx.TreeKind{fdx.NodeTree, fdx.UserTree, fdx.PhoneTree} {
		info, err := nl.Info(kind)
		if err != nil {
			log.Fatalf("info: %v", err)
		}
		size := uint64(info.Pages+1) * uint64(info.PageSize)
		fmt.Printf("  %-13s %s records, %d levels, %s pages (%s)\n", kind.FileName(),
			humanize.Comma(int64(info.Records)), info.Levels, humanize.Comma(int64(info.Pages)), humanize.Bytes(size))
	}

	fmt.Println("\n--- zones ---")
	c, err := nl.GetZones(0, nil)
	if err != nil {
		log.Fatalf("zones: %v", err)
	}
	for c.State() == nodelist.Active {
		name, _ := c.SystemName()
		fmt.Printf("  %-12s %s\n", c.Address(), name)
		if _, err := nl.Continue(c); err != nil {
			log.Fatalf("continue: %v", err)
		}
	}

	fmt.Println("\n--- sysops named SMITH ---")
	c, err = nl.FindByName("SMITH_", nil)
	if err != nil {
		log.Fatalf("user: %v", err)
	}
	for c.State() == nodelist.Active {
		number, cost, _ := c.TranslatedNumberAndCost()
		fmt.Printf("  %-16s %-12s dial %q cost %d\n", c.Name(), c.Address(), number, cost)
		if _, err := nl.Continue(c); err != nil {
			log.Fatalf("continue: %v", err)
		}
	}

	fmt.Println("\nDone. Inspect:")
	for _, kind := range []fdx.TreeKind{fdx.NodeTree, fdx.UserTree, fdx.PhoneTree} {
		fmt.Println("  -", filepath.Join(dir, kind.FileName()))
	}
}

func index(nl *nodelist.Nodelist, file dm.FileID, l line) {
	a, err := fdx.ParseAddress(l.addr)
	if err != nil {
		log.Fatalf("address %s: %v", l.addr, err)
	}
	r, err := fdx.ParseAddress(l.route)
	if err != nil {
		log.Fatalf("route %s: %v", l.route, err)
	}
	if err := nl.AppendLine(file, a, r.Net, r.Node, l.text); err != nil {
		log.Fatalf("index %s: %v", l.addr, err)
	}
}
