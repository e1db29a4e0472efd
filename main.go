package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"NodelistDB/config"
	fdx "NodelistDB/fdxtree"
	"NodelistDB/logger"
	"NodelistDB/nodelist"
)

const usage = `commands:
  find <z:n/f[.p]|pattern>    look up an address or wildcard (2:443/*)
  user <LAST FIRST|LAST_>      look up a sysop, '_' is a wildcard
  zones [start]                zone coordinators
  nets <zone> [start]          net hosts of a zone
  nodes <zone> <net> [start]   nodes of a net
  points <z:n/f> [start]       points of a node
  next                         continue the last search
  phone <number>               dial translation and cost
  freeze | thaw                release or reopen the files
  poll                         follow the semaphore directory
  info                         index statistics
  exit`

func main() {
	cfg := config.NewCfg()
	cfg.Dir = "nodelists/sample"
	if len(os.Args) > 1 {
		var err error
		if cfg, err = config.Load(os.Args[1]); err != nil {
			log.Fatal(err)
		}
	}
	logger.InitLogger(cfg.LogConfig())

	nl, err := nodelist.Open(cfg, fdx.ReadOnly)
	if err != nil {
		log.Fatal(err)
	}
	defer nl.Close()

	var cursor *nodelist.Cursor
	scanner := bufio.NewScanner(os.Stdin)
	// REPL
	for {
		fmt.Print("fdn> ")

		if !scanner.Scan() { // Ctrl+D pressed
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]
		if cmd == "exit" || cmd == "quit" {
			break
		}

		var c *nodelist.Cursor
		switch cmd {
		case "find":
			c, err = find(nl, args)
		case "user":
			c, err = nl.FindByName(strings.Join(args, " "), nil)
		case "zones":
			c, err = nl.GetZones(num(args, 0), nil)
		case "nets":
			c, err = nl.GetNets(num(args, 0), num(args, 1), nil)
		case "nodes":
			c, err = nl.GetNodes(num(args, 0), num(args, 1), num(args, 2), nil)
		case "points":
			c, err = points(nl, args)
		case "next":
			if cursor == nil {
				fmt.Println("no search in progress")
				continue
			}
			c = cursor
			_, err = nl.Continue(c)
		case "phone":
			if len(args) == 0 {
				fmt.Println("phone <number>")
				continue
			}
			number, cost, err := nl.TranslateNumber(args[0])
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Printf("dial %q cost %d\n", number, cost)
			continue
		case "freeze":
			report(nl.Freeze())
			continue
		case "thaw":
			report(nl.Thaw())
			continue
		case "poll":
			state, err := nl.AutoFreezeThaw()
			if err != nil {
				fmt.Printf("Error: %v\n", err)
			}
			fmt.Println(state)
			continue
		case "info":
			info(nl)
			continue
		default:
			fmt.Println(usage)
			continue
		}

		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		cursor = c
		show(c)
	}
}

func find(nl *nodelist.Nodelist, args []string) (*nodelist.Cursor, error) {
	if len(args) == 0 {
		return nil, fdx.Errorf(fdx.InvalidArgument, "find", "usage: find <address>")
	}
	p, err := fdx.ParsePattern(args[0])
	if err != nil {
		return nil, err
	}
	if p.Depth == 4 {
		return nl.Find(p.Address, nil)
	}
	return nl.FindPattern(p, nil)
}

func points(nl *nodelist.Nodelist, args []string) (*nodelist.Cursor, error) {
	if len(args) == 0 {
		return nil, fdx.Errorf(fdx.InvalidArgument, "points", "usage: points <z:n/f>")
	}
	a, err := fdx.ParseAddress(args[0])
	if err != nil {
		return nil, err
	}
	return nl.GetPoints(a.Zone, a.Net, a.Node, num(args, 1), nil)
}

func num(args []string, i int) uint16 {
	if i >= len(args) {
		return 0
	}
	v, err := strconv.ParseUint(args[i], 10, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

func show(c *nodelist.Cursor) {
	if c.State() != nodelist.Active {
		fmt.Println("(no more matches)")
		return
	}
	rec, err := c.Record()
	if err != nil {
		fmt.Printf("%-16s %-6s offset %s: %v\n", c.Address(), c.Status(), fdx.FormatOffset(c.Offset()), err)
		return
	}
	rnet, rnode := c.Routing()
	fmt.Printf("%-16s %-6s %s, %s, %s\n", c.Address(), c.Status(), rec.Name, rec.Location, rec.Sysop)
	fmt.Printf("  phone %s  speed %d  flags %s  via %d/%d\n", rec.Phone, rec.Speed, rec.Flags, rnet, rnode)
	if c.Kind() == nodelist.Username {
		fmt.Printf("  listed as %q\n", c.Name())
	}
}

func report(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func info(nl *nodelist.Nodelist) {
	h := nl.Header()
	fmt.Printf("revision %d.%d (db rev %d) country %d ext %q\n",
		h.RevisionMaj, h.RevisionMin, nl.Revision(), h.CountryCode, h.NodeExt)
	for _, kind := range []fdx.TreeKind{fdx.NodeTree, fdx.UserTree, fdx.PhoneTree} {
		i, err := nl.Info(kind)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("  %-13s records=%d pages=%d levels=%d root=%d\n", kind.FileName(), i.Records, i.Pages, i.Levels, i.Root)
	}
}
