package pico

import (
	"fmt"
	"io"
	"text/template"
)

// Stage selects which side of the contract a linker script is for.
type Stage int

const (
	StageBIOS Stage = iota
	StageOS
)

func (s Stage) String() string {
	if s == StageOS {
		return "os"
	}
	return "bios"
}

// ParseStage accepts "bios" or "os".
func ParseStage(s string) (Stage, error) {
	switch s {
	case "bios":
		return StageBIOS, nil
	case "os":
		return StageOS, nil
	}
	return 0, fmt.Errorf("unknown stage %q", s)
}

type memoryLine struct {
	Name   string
	Attr   string
	Origin uint32
	Length uint32
}

type assignment struct {
	Name    string
	Expr    string
	Addr    uint32
	Provide bool
}

type scriptData struct {
	Stage     Stage
	BIOS      bool
	Memory    []memoryLine
	Boot      Placement
	OSSection string
	Symbols   []assignment
}

var scriptTmpl = template.Must(template.New("memory.x").Parse(`/* {{.Stage}} memory map, generated by picomap. Do not edit. */
MEMORY
{
{{- range .Memory}}
    {{printf "%-8s" .Name}}{{if .Attr}} ({{.Attr}}){{end}} : ORIGIN = {{printf "0x%08x" .Origin}}, LENGTH = {{printf "0x%08x" .Length}}
{{- end}}
}
{{if .BIOS}}
EXTERN({{.Boot.Symbol}})

SECTIONS {
    /* second stage bootloader, first in flash */
    {{.Boot.Section}} ORIGIN({{.Boot.Region}}) :
    {
        KEEP(*({{.Boot.Section}}));
    } > {{.Boot.Region}}
} INSERT BEFORE {{.Boot.Before}};

SECTIONS {
    {{.OSSection}} ORIGIN(FLASH_OS) :
    {
        KEEP(*({{.OSSection}}));
    } > FLASH_OS
} INSERT AFTER .text;

ASSERT(SIZEOF({{.Boot.Section}}) <= LENGTH({{.Boot.Region}}), "{{.Boot.Section}} does not fit in {{.Boot.Region}}");
{{end}}
{{- range .Symbols}}
{{if .Provide}}PROVIDE({{.Name}} = {{.Expr}});{{else}}{{.Name}} = {{.Expr}};{{end}} /* {{printf "0x%08x" .Addr}} */
{{- end}}
`))

// WriteMemoryX writes the linker memory script of one stage. Both scripts
// come from the same table, so the stages cannot disagree on addresses.
func (t *Table) WriteMemoryX(w io.Writer, stage Stage) error {
	data := scriptData{Stage: stage, BIOS: stage == StageBIOS, Boot: t.Placement(), OSSection: ".flash_os"}
	syms := t.exports.Symbols()
	switch stage {
	case StageBIOS:
		for _, r := range t.regions {
			data.Memory = append(data.Memory, memoryLine{
				Name: r.Name, Attr: r.Perm.String(), Origin: r.Origin, Length: r.Length,
			})
		}
		for _, s := range syms {
			data.Symbols = append(data.Symbols, assignment{
				Name: s.Name, Expr: t.symbolExpr(s), Addr: s.Addr,
			})
		}
	case StageOS:
		osFlash := t.region(RegionOSFlash)
		osRAM := t.region(RegionOSRAM)
		window, _ := t.exports.Lookup(SymFlashOSEnd)
		data.Memory = []memoryLine{
			{Name: "FLASH", Origin: osFlash.Origin, Length: window - osFlash.Origin},
			{Name: "RAM", Attr: osRAM.Perm.String(), Origin: osRAM.Origin, Length: osRAM.Length},
		}
		for _, s := range syms {
			if s.Name == StackSymbol {
				continue
			}
			data.Symbols = append(data.Symbols, assignment{
				Name: s.Name, Expr: fmt.Sprintf("0x%08x", s.Addr), Addr: s.Addr, Provide: true,
			})
		}
	default:
		return fmt.Errorf("unknown stage %d", stage)
	}
	return scriptTmpl.Execute(w, data)
}

// symbolExpr renders a symbol in terms of its region so the script stays
// readable next to the MEMORY block.
func (t *Table) symbolExpr(s Symbol) string {
	r := t.region(s.Region)
	switch {
	case s.Addr == r.Origin:
		return fmt.Sprintf("ORIGIN(%s)", r.Name)
	case uint64(s.Addr) == r.End():
		return fmt.Sprintf("ORIGIN(%s) + LENGTH(%s)", r.Name, r.Name)
	}
	return fmt.Sprintf("ORIGIN(%s) + 0x%x", r.Name, s.Addr-r.Origin)
}
