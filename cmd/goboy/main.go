// Command goboy is the reference desktop host: an SDL2 window and
// audio queue around the emulator core, with file-backed battery
// saves. Everything in here is collaborator territory — pacing, input
// mapping, file I/O — the core itself stays headless.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/thelolagemann/gomeboy/internal/joypad"
	"github.com/thelolagemann/gomeboy/internal/system"
	"github.com/thelolagemann/gomeboy/internal/types"
	"github.com/thelolagemann/gomeboy/pkg/audio"
	sdldisplay "github.com/thelolagemann/gomeboy/pkg/display/sdl"
	"github.com/thelolagemann/gomeboy/pkg/log"
)

// frameTime is the wall-clock duration of one emulated frame at the
// hardware's 59.73 Hz refresh.
var frameTime = time.Duration(float64(time.Second) * float64(system.CyclesPerFrame) / float64(system.ClockSpeed))

func main() {
	app := cli.NewApp()
	app.Name = "goboy"
	app.Usage = "goboy [options] <ROM file>"
	app.Description = "A Game Boy (Color) emulator"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "model",
			Usage: "Hardware model: auto, dmg or cgb",
			Value: "auto",
		},
		cli.StringFlag{
			Name:  "save-dir",
			Usage: "Directory for battery save files",
			Value: defaultSaveDir(),
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window scale factor",
			Value: 4,
		},
		cli.BoolFlag{
			Name:  "mute",
			Usage: "Start with audio muted",
		},
		cli.BoolFlag{
			Name:  "anti-socd",
			Usage: "Never report opposing directions held together",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultSaveDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "saves"
	}
	return filepath.Join(dir, "goboy", "saves")
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return fmt.Errorf("no ROM path provided")
		}
		romPath = c.Args().Get(0)
	}
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading ROM: %w", err)
	}

	saveDir := c.String("save-dir")
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return fmt.Errorf("creating save directory: %w", err)
	}

	win, err := sdldisplay.NewWindow("goboy", c.Int("scale"))
	if err != nil {
		return err
	}
	defer win.Destroy()
	defer sdl.Quit()

	speaker, err := audio.OpenQueue()
	if err != nil {
		return err
	}
	defer speaker.Close()
	speaker.SetMuted(c.Bool("mute"))

	opts := []system.Option{
		system.WithLogger(log.New()),
		system.WithPixelSink(win),
		system.WithSampleSink(speaker),
		system.WithBatteryStore(fileStore{dir: saveDir}),
		system.WithSaveEvery(600), // roughly every ten seconds
	}
	switch c.String("model") {
	case "dmg":
		opts = append(opts, system.AsDMG())
	case "cgb":
		opts = append(opts, system.WithModel(types.ModelCGB))
	}
	if c.Bool("anti-socd") {
		opts = append(opts, system.WithAntiSOCD())
	}

	sys := system.New(opts...)
	if err := sys.LoadROM(rom); err != nil {
		return err
	}
	win.SetTitle(fmt.Sprintf("goboy — %s", sys.CartridgeMeta().Title))

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()
	paused := false

	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				sys.FlushBattery()
				return nil
			case *sdl.KeyboardEvent:
				pressed := e.Type == sdl.KEYDOWN
				switch e.Keysym.Sym {
				case sdl.K_ESCAPE:
					if pressed {
						sys.FlushBattery()
						return nil
					}
				case sdl.K_p:
					if pressed {
						paused = !paused
					}
				case sdl.K_m:
					if pressed {
						speaker.SetMuted(!speaker.IsMuted())
					}
				default:
					if key, ok := keyMap[e.Keysym.Sym]; ok {
						sys.SetKeyState(key, pressed)
					}
				}
			}
		}

		if !paused {
			sys.Frame()
		}
		if err := win.Render(); err != nil {
			return err
		}
		<-ticker.C
	}
}

var keyMap = map[sdl.Keycode]joypad.Button{
	sdl.K_UP:        joypad.Up,
	sdl.K_DOWN:      joypad.Down,
	sdl.K_LEFT:      joypad.Left,
	sdl.K_RIGHT:     joypad.Right,
	sdl.K_z:         joypad.A,
	sdl.K_x:         joypad.B,
	sdl.K_RETURN:    joypad.Start,
	sdl.K_BACKSPACE: joypad.Select,
}

// fileStore keeps one battery snapshot per cartridge identity in a
// flat directory of .sav files.
type fileStore struct {
	dir string
}

func (f fileStore) path(id uint64) string {
	return filepath.Join(f.dir, fmt.Sprintf("%016x.sav", id))
}

func (f fileStore) Save(id uint64, data []byte) bool {
	return os.WriteFile(f.path(id), data, 0o644) == nil
}

func (f fileStore) Load(id uint64) ([]byte, bool) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		return nil, false
	}
	return data, true
}
