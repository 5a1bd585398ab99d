// Package pico computes and checks the static memory map shared by the
// Neotron Pico BIOS and the OS it boots on an RP2040.
//
// The two stages are linked independently. The BIOS owns the boot page,
// the first flash budget after it and the top of the striped SRAM bank;
// the OS owns the rest. A Table is built once from a Device and a Budget
// and everything else is derived from it:
//
//	t, err := pico.NewTable(pico.DefaultDevice(), pico.DefaultBudget())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	t.WriteMemoryX(os.Stdout, pico.StageBIOS)
//
// The derived views are the exported symbols (Exports), the boot blob
// placement (Placement), the initial stack pointer (StackPointer) and the
// versioned Contract both stages can compare by digest.
package pico
