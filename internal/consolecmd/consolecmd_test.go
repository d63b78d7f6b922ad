package consolecmd

import (
	"strings"
	"testing"

	"github.com/LLLida/lidaEngine-sub000/internal/config"
	"github.com/LLLida/lidaEngine-sub000/internal/sceneio"
)

func TestParseTokenizesBySpace(t *testing.T) {
	cmd, err := Parse("set Camera.fovy 1.2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Name != "set" || len(cmd.Args) != 2 || cmd.Args[0] != "Camera.fovy" || cmd.Args[1] != "1.2" {
		t.Fatalf("unexpected parse result: %+v", cmd)
	}
}

func TestParseRejectsEmptyLine(t *testing.T) {
	if _, err := Parse("   "); err == nil {
		t.Fatal("expected an error parsing an empty command line")
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	c := &Console{Vars: config.New()}

	if _, err := c.Run(Command{Name: "set", Args: []string{"Render.msaa", "4"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Run(Command{Name: "get", Args: []string{"Render.msaa"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "4" {
		t.Fatalf("get Render.msaa = %q, want 4", got)
	}
}

func TestListVarsFiltersByPrefix(t *testing.T) {
	c := &Console{Vars: config.New()}
	c.Run(Command{Name: "set", Args: []string{"Camera.fovy", "1.2"}})
	c.Run(Command{Name: "set", Args: []string{"Render.msaa", "4"}})

	out, err := c.Run(Command{Name: "list_vars", Args: []string{"Camera."}})
	if err != nil {
		t.Fatalf("list_vars: %v", err)
	}
	if out != "Camera.fovy" {
		t.Fatalf("list_vars Camera. = %q, want Camera.fovy", out)
	}
}

func TestUnknownCommandErrors(t *testing.T) {
	c := &Console{Vars: config.New()}
	if _, err := c.Run(Command{Name: "frobnicate"}); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestSaveLoadSceneRoundTripsThroughTempFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/scene.bin"

	saved := sceneio.Camera{}
	c := &Console{
		Vars:        config.New(),
		CameraState: func() sceneio.Camera { return saved },
		ModelsState: func() []sceneio.VoxModel { return nil },
	}
	if _, err := c.Run(Command{Name: "save_scene", Args: []string{path}}); err != nil {
		t.Fatalf("save_scene: %v", err)
	}

	var loaded *sceneio.Package
	c2 := &Console{
		Vars:   config.New(),
		OnLoad: func(p sceneio.Package) { loaded = &p },
	}
	if _, err := c2.Run(Command{Name: "load_scene", Args: []string{path}}); err != nil {
		t.Fatalf("load_scene: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected OnLoad to be called")
	}
}

func TestInfoDescribesKnownBuiltins(t *testing.T) {
	c := &Console{Vars: config.New()}
	out, err := c.Run(Command{Name: "info", Args: []string{"FPS"}})
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "FPS") {
		t.Fatalf("info FPS = %q, expected it to mention FPS", out)
	}
}
