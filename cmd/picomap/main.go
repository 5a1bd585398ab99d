// picomap computes the BIOS/OS memory map of an RP2040 board and checks
// built artefacts against it.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/q0jt/go-pico/pico"
)

var errUsage = errors.New("bad arguments")

// sizeFlag is a byte count that must fit in 32 bits. It accepts decimal or
// 0x-prefixed hex, and "none" when allowNone is set (stored as 0).
type sizeFlag struct {
	value     uint32
	set       bool
	allowNone bool
}

func (f *sizeFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return fmt.Sprintf("%#x", f.value)
}

func (f *sizeFlag) Set(s string) error {
	if f.allowNone && s == "none" {
		f.value, f.set = 0, true
		return nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return fmt.Errorf("size %q: must be a byte count below 4 GiB", s)
	}
	f.value, f.set = uint32(v), true
	return nil
}

// overrides are the budget flags given on the command line.
type overrides struct {
	biosFlash sizeFlag
	biosRAM   sizeFlag
	window    sizeFlag
}

// apply replaces the budget fields whose flag was given.
func (o *overrides) apply(b pico.Budget) pico.Budget {
	if o.biosFlash.set {
		b.BIOSFlash = o.biosFlash.value
	}
	if o.biosRAM.set {
		b.BIOSRAM = o.biosRAM.value
	}
	if o.window.set {
		b.OSFlashWindow = o.window.value
	}
	return b
}

var configFlag = flag.String("config", "", "pkl memory config (built-in RP2040 map when empty)")
var boardFlag = flag.String("board", "neotron-pico", "board to look up in the config")
var jsonFlag = flag.Bool("json", false, "symbols: write JSON instead of text")
var outFlag = flag.String("o", "", "write output to this file instead of stdout (only written on success)")
var budgetFlags = overrides{window: sizeFlag{allowNone: true}}

func init() {
	flag.Var(&budgetFlags.biosFlash, "bios-flash", "BIOS flash budget in bytes, excluding the boot page (default from config)")
	flag.Var(&budgetFlags.biosRAM, "bios-ram", "BIOS RAM budget in bytes (default from config)")
	flag.Var(&budgetFlags.window, "window", `OS flash window cap in bytes; "none" or 0 publishes all of FLASH_OS (default from config)`)
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: picomap [flags] command [args]

commands:
  table                 print the region table
  symbols               print the exported symbols
  ld bios|os            write the memory.x of a stage
  contract              write the binary contract and print its digest
  boot2 FILE            check a boot blob (raw or Intel HEX)
  seal FILE             pad a raw boot blob and append its checksum
  image FILE [BOOT2]    check a flash image (Intel HEX)
  elf FILE              check a stage ELF against the exported symbols

flags:
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("picomap: ")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	t, err := buildTable(context.Background(), *configFlag, *boardFlag, &budgetFlags)
	if err != nil {
		log.Fatalf("memory map: %v", err)
	}
	for _, s := range t.Exports().Symbols() {
		if s.Clamped {
			log.Printf("warning: OS flash window is larger than %s, %s clamped to 0x%08x",
				s.Region, s.Name, s.Addr)
		}
	}

	tty := *outFlag == "" && term.IsTerminal(int(os.Stdout.Fd()))
	args := flag.Args()
	err = execute(t, *outFlag, tty, args[0], args[1:])
	if errors.Is(err, errUsage) {
		usage()
	}
	if err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func buildTable(ctx context.Context, config, boardName string, o *overrides) (*pico.Table, error) {
	d, b := pico.DefaultDevice(), pico.DefaultBudget()
	if config != "" {
		name, err := pico.ParseBoard(boardName)
		if err != nil {
			return nil, err
		}
		d, b, err = pico.LoadLayout(ctx, config, name)
		if err != nil {
			return nil, err
		}
	}
	return pico.NewTable(d, o.apply(b))
}

// execute runs cmd into a buffer and only writes it out once cmd has
// succeeded, so a failed command never leaves a partial output file.
func execute(t *pico.Table, outPath string, tty bool, cmd string, args []string) error {
	var buf bytes.Buffer
	if err := run(t, &buf, tty, cmd, args); err != nil {
		return err
	}
	if outPath == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(outPath, buf.Bytes(), 0644)
}

func run(t *pico.Table, out io.Writer, tty bool, cmd string, args []string) error {
	switch cmd {
	case "table":
		printTable(t, out, tty)
		return nil
	case "symbols":
		if *jsonFlag {
			return t.Exports().WriteJSON(out)
		}
		for _, s := range t.Exports().Symbols() {
			fmt.Fprintf(out, "%-16s 0x%08x %s\n", s.Name, s.Addr, s.Region)
		}
		return nil
	case "ld":
		if len(args) != 1 {
			return errUsage
		}
		stage, err := pico.ParseStage(args[0])
		if err != nil {
			return err
		}
		return t.WriteMemoryX(out, stage)
	case "contract":
		c := t.Contract()
		if _, err := out.Write(pico.EncodeContract(c)); err != nil {
			return err
		}
		log.Printf("contract v%d digest %s", c.Version, hex.EncodeToString(c.Digest()))
		return nil
	case "boot2":
		if len(args) != 1 {
			return errUsage
		}
		blob, err := readBlob(args[0])
		if err != nil {
			return err
		}
		if err := t.Placement().VerifyBlobChecksum(blob); err != nil {
			return err
		}
		log.Printf("%s: %d bytes, checksum ok", args[0], len(blob))
		return nil
	case "seal":
		if len(args) != 1 {
			return errUsage
		}
		blob, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		sealed, err := t.Placement().SealBlob(blob)
		if err != nil {
			return err
		}
		_, err = out.Write(sealed)
		return err
	case "image":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		return checkImage(t, args)
	case "elf":
		if len(args) != 1 {
			return errUsage
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		if err := t.Exports().CheckELF(f); err != nil {
			return err
		}
		log.Printf("%s: contract symbols resolve", args[0])
		return nil
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

func printTable(t *pico.Table, out io.Writer, tty bool) {
	if !tty {
		for _, r := range t.Regions() {
			fmt.Fprintf(out, "%s 0x%08x 0x%08x %s\n", r.Name, r.Origin, r.Length, r.Perm)
		}
		return
	}
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tCLASS\tORIGIN\tEND\tSIZE\tPERM")
	for _, r := range t.Regions() {
		fmt.Fprintf(w, "%s\t%s\t0x%08x\t0x%08x\t%s\t%s\n",
			r.Name, r.Class, r.Origin, r.End(), humanize.IBytes(uint64(r.Length)), r.Perm)
	}
	fmt.Fprintf(w, "stack\t\t0x%08x\t\t\t\n", t.StackPointer())
	w.Flush()
}

func readBlob(name string) ([]byte, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return pico.LoadBlob(bytes.NewReader(b))
}

func checkImage(t *pico.Table, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	img, err := pico.ReadImage(f)
	if err != nil {
		return err
	}
	var blob []byte
	if len(args) == 2 {
		if blob, err = readBlob(args[1]); err != nil {
			return err
		}
	}
	if err := t.CheckImage(img, blob); err != nil {
		return err
	}
	log.Printf("%s: layout ok", args[0])
	return nil
}
