// Command voxelengine parses the CLI flags, loads the typed config store,
// brings the Engine up, and pumps its frame loop until the window closes
// or startup fails.
package main

import (
	"bufio"
	"fmt"
	"os"

	vk "github.com/goki/vulkan"
	flag "github.com/spf13/pflag"

	"github.com/LLLida/lidaEngine-sub000/internal/config"
	"github.com/LLLida/lidaEngine-sub000/internal/consolecmd"
	"github.com/LLLida/lidaEngine-sub000/internal/logx"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 on clean shutdown, nonzero on
// startup failure.
func run() int {
	var (
		debugLayers = flag.Int("debug-layers", 0, "enable Vulkan validation layers (0|1)")
		msaa        = flag.Int("msaa", 1, "MSAA sample count (1, 2, 4, 8, ...)")
		width       = flag.Int("width", 1280, "window width in pixels")
		height      = flag.Int("height", 720, "window height in pixels")
		resizable   = flag.Int("resizable", 1, "whether the window can be resized (0|1)")
		gpuIndex    = flag.Int("gpu", 0, "index of the physical device to use")
		configPath  = flag.String("config", "", "path to a TOML config document (optional)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: voxelengine [flags]\n")
		flag.PrintDefaults()
	}
	// pflag.Parse rejects unknown flags on its own; ContinueOnError would
	// be redundant since os.Exit(2) on parse failure already yields the
	// required nonzero code.
	flag.Parse()

	log := logx.New(os.Stderr, logx.LevelFromFlags(false, false, false), "voxelengine")

	sampleCount, err := sampleCountFromFlag(*msaa)
	if err != nil {
		log.Error("invalid --msaa value", "value", *msaa, "error", err)
		return 1
	}

	store, err := loadConfigStore(*configPath)
	if err != nil {
		log.Error("failed to load config", "path", *configPath, "error", err)
		return 1
	}

	cfg := EngineConfig{
		Title:        "voxelengine",
		Width:        *width,
		Height:       *height,
		Resizable:    *resizable != 0,
		ShaderDir:    shaderDirFromConfig(store),
		MSAA:         sampleCount,
		ShadowMapDim: uint32(shadowMapDimFromConfig(store)),
		MaxVertices:  maxVerticesFromConfig(store),
		MaxDraws:     maxDrawsFromConfig(store),
		UseIndirect:  useIndirectFromConfig(store),
		ConfigPath:   *configPath,
		DebugLayers:  *debugLayers != 0,
		GPUIndex:     *gpuIndex,
	}

	engine, err := NewEngine(cfg, log, store)
	if err != nil {
		log.Error("engine startup failed", "error", err)
		return 1
	}
	defer engine.Close()

	stopConsole := make(chan struct{})
	go runConsole(engine.Console(), log, stopConsole)
	defer close(stopConsole)

	if err := engine.Run(); err != nil {
		log.Error("engine run failed", "error", err)
		return 1
	}
	return 0
}

// sampleCountFromFlag maps the --msaa integer onto the Vulkan sample-count
// bit, rejecting anything that is not a Vulkan-legal power of two in
// [1, 64].
func sampleCountFromFlag(n int) (vk.SampleCountFlagBits, error) {
	switch n {
	case 1:
		return vk.SampleCount1Bit, nil
	case 2:
		return vk.SampleCount2Bit, nil
	case 4:
		return vk.SampleCount4Bit, nil
	case 8:
		return vk.SampleCount8Bit, nil
	case 16:
		return vk.SampleCount16Bit, nil
	case 32:
		return vk.SampleCount32Bit, nil
	case 64:
		return vk.SampleCount64Bit, nil
	default:
		return 0, fmt.Errorf("must be one of 1, 2, 4, 8, 16, 32, 64")
	}
}

// loadConfigStore reads path's TOML document if given, otherwise returns
// an empty store; the core only ever reads from it, so an absent config
// file is not an error.
func loadConfigStore(path string) (*config.Store, error) {
	if path == "" {
		return config.New(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return config.Load(f)
}

// shaderDirFromConfig, shadowMapDimFromConfig, maxVerticesFromConfig,
// maxDrawsFromConfig and useIndirectFromConfig read optional dotted-key
// overrides out of the config store, falling back to compiled-in
// defaults sized for a modest scene; max_draws/max_vertices are a
// deployment choice, not a fixed protocol constant.
func shaderDirFromConfig(store *config.Store) string {
	if v, ok := store.String("Render.shader_dir"); ok {
		return v
	}
	return "shaders"
}

func shadowMapDimFromConfig(store *config.Store) int64 {
	if v, ok := store.Int("Render.shadow_map_dim"); ok {
		return v
	}
	return 2048
}

func maxVerticesFromConfig(store *config.Store) int {
	if v, ok := store.Int("Render.max_vertices"); ok {
		return int(v)
	}
	return 1 << 20
}

func maxDrawsFromConfig(store *config.Store) int {
	if v, ok := store.Int("Render.max_draws"); ok {
		return int(v)
	}
	return 4096
}

func useIndirectFromConfig(store *config.Store) bool {
	if v, ok := store.Bool("Render.use_indirect"); ok {
		return v
	}
	return true
}

// runConsole drives the optional stdin console command protocol: one line
// in, one reply or error out. It stops reading once stop is
// closed; os.Stdin.Close has no clean way to unblock Scan early, so this
// goroutine is simply abandoned at process exit rather than joined.
func runConsole(console *consolecmd.Console, log *logx.Logger, stop <-chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-stop:
			return
		default:
		}
		line := scanner.Text()
		cmd, err := consolecmd.Parse(line)
		if err != nil {
			continue
		}
		reply, err := console.Run(cmd)
		if err != nil {
			log.Warn("console command failed", "command", cmd.Name, "error", err)
			continue
		}
		if reply != "" {
			fmt.Println(reply)
		}
	}
}
