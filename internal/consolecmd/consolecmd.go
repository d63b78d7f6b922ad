// Package consolecmd implements the named string-list console command
// protocol (info, FPS, get, set, list_vars, save_scene, load_scene),
// layered over internal/config and internal/sceneio. The console itself is
// optional and outside the engine core; this package only implements the
// command dispatch, not a terminal UI. Commands tokenize as a repeated
// space-delimited command line, in the same spirit as the engine's
// one-shot pflag-based startup parsing.
package consolecmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/LLLida/lidaEngine-sub000/internal/config"
	"github.com/LLLida/lidaEngine-sub000/internal/sceneio"
)

// Command is one parsed console input: a name plus its string arguments.
type Command struct {
	Name string
	Args []string
}

// Parse tokenizes a raw console line into a Command by whitespace,
// rejecting an empty line.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("consolecmd: empty command")
	}
	return Command{Name: fields[0], Args: fields[1:]}, nil
}

// FPSSource reports the engine's current frames-per-second, for the `FPS`
// builtin.
type FPSSource func() float64

// Console dispatches the builtin commands against a
// config.Store and the scene save/load path. Unknown commands return an
// error; the caller decides whether that's fatal.
type Console struct {
	Vars *config.Store
	FPS  FPSSource

	// CameraState/ModelsState feed save_scene and are overwritten by
	// load_scene; the caller owns the actual ECS/camera it is a
	// projection of.
	CameraState func() sceneio.Camera
	ModelsState func() []sceneio.VoxModel
	OnLoad      func(sceneio.Package)
}

// Run executes cmd against c, returning the human-readable reply `info`/
// `get`/`FPS`/`list_vars` produce, or an error for a failed `set`/
// `save_scene`/`load_scene`.
func (c *Console) Run(cmd Command) (string, error) {
	switch cmd.Name {
	case "info":
		return c.info(cmd.Args)
	case "FPS":
		if c.FPS == nil {
			return "", fmt.Errorf("consolecmd: FPS source not wired")
		}
		return fmt.Sprintf("%.1f", c.FPS()), nil
	case "get":
		return c.get(cmd.Args)
	case "set":
		return "", c.set(cmd.Args)
	case "list_vars":
		prefix := ""
		if len(cmd.Args) > 0 {
			prefix = cmd.Args[0]
		}
		return strings.Join(c.Vars.List(prefix), "\n"), nil
	case "save_scene":
		return "", c.saveScene(cmd.Args)
	case "load_scene":
		return "", c.loadScene(cmd.Args)
	default:
		return "", fmt.Errorf("consolecmd: unknown command %q", cmd.Name)
	}
}

func (c *Console) info(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("consolecmd: info <cmd>")
	}
	switch args[0] {
	case "info", "FPS", "get", "set", "list_vars", "save_scene", "load_scene":
		return fmt.Sprintf("%s: builtin console command", args[0]), nil
	default:
		return "", fmt.Errorf("consolecmd: no such command %q", args[0])
	}
}

func (c *Console) get(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("consolecmd: get <var>")
	}
	key := args[0]
	if v, ok := c.Vars.Float(key); ok {
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	if v, ok := c.Vars.String(key); ok {
		return v, nil
	}
	if v, ok := c.Vars.Bool(key); ok {
		return strconv.FormatBool(v), nil
	}
	return "", fmt.Errorf("consolecmd: unknown variable %q", key)
}

func (c *Console) set(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("consolecmd: set <var> <value>")
	}
	key, raw := args[0], args[1]
	c.Vars.Set(key, parseValue(raw))
	return nil
}

// parseValue infers a TOML-ish scalar type from a raw console token:
// bool, then int, then float, falling back to string.
func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func (c *Console) saveScene(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("consolecmd: save_scene <path>")
	}
	if c.CameraState == nil || c.ModelsState == nil {
		return fmt.Errorf("consolecmd: save_scene not wired to engine state")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("consolecmd: save_scene: %w", err)
	}
	defer f.Close()

	pkg := &sceneio.Package{Camera: c.CameraState(), Models: c.ModelsState()}
	return sceneio.Save(f, pkg)
}

func (c *Console) loadScene(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("consolecmd: load_scene <path>")
	}
	if c.OnLoad == nil {
		return fmt.Errorf("consolecmd: load_scene not wired to engine state")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("consolecmd: load_scene: %w", err)
	}
	defer f.Close()

	pkg, err := sceneio.Load(f)
	if err != nil {
		return fmt.Errorf("consolecmd: load_scene: %w", err)
	}
	c.OnLoad(*pkg)
	return nil
}
