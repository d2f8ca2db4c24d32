// run6502 loads a raw binary into a flat 64KiB memory and runs it on a
// 65xx core until it halts, optionally printing a trace of the most
// recently completed instructions and/or dumping the zero page as a PNG
// tile sheet.
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"

	"golang.org/x/image/draw"
	"gopkg.in/urfave/cli.v2"

	"github.com/kheston/mos6502/cpu"
	"github.com/kheston/mos6502/debugger"
	"github.com/kheston/mos6502/memory"
)

func main() {
	app := &cli.App{
		Name:    "run6502",
		Usage:   "Run a 65xx program against the cycle-accurate core",
		Version: "v0.0.1",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "variant",
				Aliases: []string{"v"},
				Usage:   "chip variant: nmos, ricoh, rockwell-cmos, wdc-cmos",
				Value:   "nmos",
			},
			&cli.StringFlag{
				Name:    "load",
				Aliases: []string{"l"},
				Usage:   "path to a raw binary to load into memory (required)",
			},
			&cli.UintFlag{
				Name:  "load-addr",
				Usage: "address to load the binary at",
				Value: 0x0600,
			},
			&cli.UintFlag{
				Name:  "reset-vector",
				Usage: "value to write into the reset vector (defaults to --load-addr)",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "after halting, print a trace line for each of the last --trace-buffer completed instructions",
			},
			&cli.IntFlag{
				Name:  "trace-buffer",
				Usage: "number of trace entries to keep when --trace is set",
				Value: 64,
			},
			&cli.StringFlag{
				Name:  "dump-png",
				Usage: "if set, render the zero page as a grayscale PNG tile sheet to this path after halting",
			},
			&cli.IntFlag{
				Name:  "dump-scale",
				Usage: "integer scale factor applied to --dump-png's output",
				Value: 4,
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.String("load") == "" {
		return fmt.Errorf("--load is required")
	}

	variant, err := parseVariant(c.String("variant"))
	if err != nil {
		return err
	}

	prog, err := os.ReadFile(c.String("load"))
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.String("load"), err)
	}
	loadAddr := uint16(c.Uint("load-addr"))
	resetVector := loadAddr
	if c.IsSet("reset-vector") {
		resetVector = uint16(c.Uint("reset-vector"))
	}

	ram := memory.NewFlat64k()
	ram.PowerOn()
	ram.Write(cpu.ResetVector, uint8(resetVector&0xFF))
	ram.Write(cpu.ResetVector+1, uint8(resetVector>>8))
	ram.LoadAt(loadAddr, prog)

	chip, err := cpu.Init(&cpu.ChipDef{Variant: variant, Ram: ram})
	if err != nil {
		return fmt.Errorf("initializing cpu: %w", err)
	}

	var ring *debugger.Ring
	probe := func(p *cpu.Chip) {}
	if c.Bool("trace") {
		ring = debugger.NewRing(c.Int("trace-buffer"))
		probe = ring.Probe
	}

	cycles, err := chip.ExecuteUntilBreak(ram, probe)

	if ring != nil {
		for _, e := range ring.Last(c.Int("trace-buffer")) {
			fmt.Println(e)
		}
	}

	fmt.Printf("halted after %d cycles: A=%.2X X=%.2X Y=%.2X S=%.2X P=%.2X PC=%.4X\n",
		cycles, chip.A, chip.X, chip.Y, chip.S, chip.P, chip.PC)
	if err != nil {
		fmt.Println(debugger.Dump(chip))
		return err
	}

	if path := c.String("dump-png"); path != "" {
		return dumpPNG(path, ram, c.Int("dump-scale"))
	}
	return nil
}

func parseVariant(name string) (cpu.Variant, error) {
	switch name {
	case "nmos":
		return cpu.NMOS, nil
	case "ricoh":
		return cpu.NMOSRicoh, nil
	case "rockwell-cmos", "wdc-cmos", "cmos":
		return cpu.CMOS, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", name)
	}
}

// dumpPNG renders the zero page (256 bytes, as a 16x16 tile of one pixel
// per byte) as a grayscale PNG, then scales it up by scale using
// golang.org/x/image/draw so each byte is visible as a block rather than
// a single pixel.
func dumpPNG(path string, ram *memory.Flat64k, scale int) error {
	if scale < 1 {
		scale = 1
	}
	src := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := 0; i < 256; i++ {
		v := ram.Read(uint16(i))
		src.SetGray(i%16, i/16, color.Gray{Y: v})
	}

	dst := image.NewRGBA(image.Rect(0, 0, 16*scale, 16*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, dst); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}
