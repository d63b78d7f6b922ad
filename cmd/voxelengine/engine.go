package main

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/config"
	"github.com/LLLida/lidaEngine-sub000/internal/consolecmd"
	"github.com/LLLida/lidaEngine-sub000/internal/drawer"
	"github.com/LLLida/lidaEngine-sub000/internal/ecs"
	"github.com/LLLida/lidaEngine-sub000/internal/gpu"
	"github.com/LLLida/lidaEngine-sub000/internal/logx"
	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
	"github.com/LLLida/lidaEngine-sub000/internal/platform"
	"github.com/LLLida/lidaEngine-sub000/internal/rendergraph"
	"github.com/LLLida/lidaEngine-sub000/internal/sceneio"
	"github.com/LLLida/lidaEngine-sub000/internal/voxel"
)

// cullMaskMain and cullMaskShadow are the two camera slots this engine
// drives out of the up-to-8 cull-mask bits a drawer instance supports: bit
// 0 the player's view, bit 1 the shadow-casting light. A VoxelView with
// CullMask set to both bits (the default onLoadScene assigns) is both
// drawn and casts a shadow.
const (
	cullMaskMain   = 1 << 0
	cullMaskShadow = 1 << 1
)

// EngineConfig is every construction-time parameter main.go collects from
// CLI flags and internal/config before bringing the engine up.
type EngineConfig struct {
	Title         string
	Width, Height int
	Resizable     bool
	ShaderDir     string
	MSAA          vk.SampleCountFlagBits
	ShadowMapDim  uint32
	MaxVertices   int
	MaxDraws      int
	UseIndirect   bool
	ConfigPath    string
	DebugLayers   bool
	GPUIndex      int
}

// Engine is the context struct that replaces package-level globals: every
// subsystem lives as a field here, threaded explicitly through
// construction, the per-frame loop, and teardown.
type Engine struct {
	log   *logx.Logger
	cfg   EngineConfig
	store *config.Store

	window *platform.Window
	clock  *platform.Clock

	device  *gpu.Device
	caches  *gpu.Caches
	dq      *gpu.DeletionQueue
	surface vk.Surface

	swapchain *Swapchain
	graph     *rendergraph.Graph
	pipelines *Pipelines
	buffers   *FrameBuffers

	world *ecs.World
	views *ecs.Table[drawer.VoxelView]
	core  *drawer.Drawer

	direct      *drawer.Direct
	indirect    *drawer.Indirect
	useIndirect bool

	mainCamera   *mathx.Camera
	shadowCamera *mathx.Camera

	voxelSet vk.DescriptorSet

	console *consolecmd.Console
}

// NewEngine brings up the whole stack in dependency order: window/surface,
// GPU device, caches/deletion-queue, swapchain, render graph, pipelines,
// buffers, ECS world, drawer backends, cameras, and the console.
func NewEngine(cfg EngineConfig, log *logx.Logger, store *config.Store) (*Engine, error) {
	e := &Engine{log: log, cfg: cfg, store: store, clock: platform.NewClock()}

	window, err := platform.NewWindow(cfg.Width, cfg.Height, cfg.Title, cfg.Resizable)
	if err != nil {
		return nil, err
	}
	e.window = window

	device, err := gpu.NewDevice(cfg.Title, log, gpu.Options{
		DebugLayers:        cfg.DebugLayers,
		GPUIndex:           cfg.GPUIndex,
		InstanceExtensions: platform.RequiredInstanceExtensions(),
	})
	if err != nil {
		return nil, err
	}
	e.device = device

	surface, err := window.CreateSurface(device.Instance)
	if err != nil {
		return nil, err
	}
	e.surface = surface

	caches, err := gpu.NewCaches(device)
	if err != nil {
		return nil, err
	}
	e.caches = caches
	e.dq = &gpu.DeletionQueue{}

	fbWidth, fbHeight := window.FramebufferSize()
	swapchain, err := NewSwapchain(device, surface, uint32(fbWidth), uint32(fbHeight), vk.Swapchain(vk.NullHandle))
	if err != nil {
		return nil, err
	}
	e.swapchain = swapchain

	graph, err := rendergraph.New(device, caches, e.dq, log, rendergraph.Config{
		Width: uint32(fbWidth), Height: uint32(fbHeight),
		ShadowMapDim:    cfg.ShadowMapDim,
		Samples:         cfg.MSAA,
		SwapchainFormat: swapchain.Format,
		SwapchainViews:  swapchain.Views,
		SwapchainExtent: swapchain.Extent,
	})
	if err != nil {
		return nil, err
	}
	e.graph = graph

	pipelines, err := NewPipelines(device, caches, graph, cfg.ShaderDir)
	if err != nil {
		return nil, err
	}
	e.pipelines = pipelines

	if err := graph.Pyramid.AllocateReduceSets(caches, pipelines.ReduceLayout, graph.Forward.DepthView); err != nil {
		return nil, fmt.Errorf("voxelengine: depth pyramid reduce sets: %w", err)
	}

	buffers, err := NewFrameBuffers(device, cfg.MaxVertices, cfg.MaxDraws)
	if err != nil {
		return nil, err
	}
	e.buffers = buffers

	if err := e.allocateVoxelSet(); err != nil {
		return nil, err
	}

	world := ecs.NewWorld()
	views := ecs.NewTable[drawer.VoxelView]()
	e.world, e.views = world, views
	e.core = drawer.NewDrawer(views, cfg.MaxVertices, cfg.MaxDraws)
	buffers.UploadIndices(e.core.Indices())

	e.direct = drawer.NewDirect(e.core)
	e.indirect = drawer.NewIndirect(e.core, cfg.MaxDraws, false)
	e.useIndirect = cfg.UseIndirect

	e.mainCamera = mathx.NewPerspectiveCamera(mgl32.Vec3{0, 0, 10}, cullMaskMain)
	e.mainCamera.SetViewport(fbWidth, fbHeight)
	e.shadowCamera = mathx.NewOrthographicCamera(mgl32.Vec3{50, 80, 50}, 64, 1, 256, cullMaskShadow)

	e.console = &consolecmd.Console{
		Vars:        store,
		FPS:         e.clock.FPS,
		CameraState: e.cameraState,
		ModelsState: e.modelsState,
		OnLoad:      e.onLoadScene,
	}

	log.Info("engine ready", "width", fbWidth, "height", fbHeight, "indirect", e.useIndirect)
	return e, nil
}

// allocateVoxelSet builds the transform storage-buffer descriptor set both
// the shadow and forward voxel pipelines bind at set 0: one static
// allocation against the whole transform ring, never rebound across
// frames (the ring's buffer handle never changes; only its contents do).
func (e *Engine) allocateVoxelSet() error {
	set, err := e.caches.AllocateSet(e.pipelines.VoxelSetLayout)
	if err != nil {
		return fmt.Errorf("voxelengine: transform descriptor set: %w", err)
	}
	e.voxelSet = set

	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: e.buffers.TransformBuffer,
		Offset: 0,
		Range:  vk.DeviceSize(vk.WholeSize),
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(e.device.Handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

// cameraState/modelsState/onLoadScene are the consolecmd.Console callback
// contract: Run's `save_scene`/`load_scene` commands read and write the
// live ECS world through these instead of touching package globals.
func (e *Engine) cameraState() sceneio.Camera {
	pos := e.mainCamera.Position()
	return sceneio.Camera{Position: pos, Up: e.mainCamera.Up()}
}

func (e *Engine) modelsState() []sceneio.VoxModel {
	var models []sceneio.VoxModel
	e.views.Each(func(_ ecs.ID, v *drawer.VoxelView) {
		g := v.Grid
		models = append(models, sceneio.VoxModel{
			Transform: v.Transform,
			Palette:   *g.Palette(),
			W:         uint32(g.W), H: uint32(g.H), D: uint32(g.D),
			Voxels: g.Bytes(),
		})
	})
	return models
}

func (e *Engine) onLoadScene(pkg sceneio.Package) {
	e.world = ecs.NewWorld()
	e.views = ecs.NewTable[drawer.VoxelView]()
	e.core.ClearCache()
	for _, m := range pkg.Models {
		id := e.world.CreateEntity()
		g := voxel.NewGrid(int(m.W), int(m.H), int(m.D))
		g.LoadBulk(m.Voxels, m.Palette)
		e.views.Add(id, drawer.VoxelView{Grid: g, Transform: m.Transform, CullMask: cullMaskMain | cullMaskShadow})
	}
}

// Console returns the engine's command dispatcher, wired
// against this engine's live config store and scene state. The console
// itself is outside the engine core; main.go decides whether and how to
// drive it (stdin REPL, scripted input, or not at all).
func (e *Engine) Console() *consolecmd.Console { return e.console }

// Run pumps the platform event loop until the window is closed, ticking
// the clock and recording/submitting/presenting one frame per iteration.
func (e *Engine) Run() error {
	for !e.window.ShouldClose() {
		e.window.PollEvents()
		e.clock.Tick()

		if err := e.renderFrame(); err != nil {
			return err
		}
	}
	vk.DeviceWaitIdle(e.device.Handle)
	return nil
}

// renderFrame is one complete frame: wait for this slot's fence, advance
// the deletion queue, mesh/cull the scene, record the shadow, forward,
// depth-pyramid-reduce and swapchain-blit passes into one command buffer,
// then submit and present. An out-of-date acquire, or a suboptimal or
// out-of-date present, triggers resize.
func (e *Engine) renderFrame() error {
	frameCounter := e.graph.BeginFrame()
	slot := frameCounter % gpu.FramesInFlight
	sync := e.device.Frames[slot]

	vk.WaitForFences(e.device.Handle, 1, []vk.Fence{sync.InFlight}, vk.True, ^uint64(0))

	var imageIndex uint32
	res := vk.AcquireNextImage(e.device.Handle, e.swapchain.Handle, ^uint64(0), sync.ImageAvailable, vk.Fence(vk.NullHandle), &imageIndex)
	if res == vk.ErrorOutOfDate {
		return e.resize()
	}
	if res != vk.Success && res != vk.Suboptimal {
		return fmt.Errorf("voxelengine: vkAcquireNextImageKHR failed: %d", res)
	}

	vk.ResetFences(e.device.Handle, 1, []vk.Fence{sync.InFlight})

	e.buildFrame()

	cmd := sync.CommandBuffer
	vk.ResetCommandBuffer(cmd, 0)
	beginInfo := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	if r := vk.BeginCommandBuffer(cmd, &beginInfo); r != vk.Success {
		return fmt.Errorf("voxelengine: vkBeginCommandBuffer failed: %d", r)
	}

	e.recordShadowPass(cmd)
	e.recordForwardPass(cmd)
	e.graph.ReduceDepthPyramid(cmd, e.pipelines.ReducePipeline, e.pipelines.ReducePipeLayout, frameCounter)
	e.recordBlitPass(cmd, imageIndex)

	if r := vk.EndCommandBuffer(cmd); r != vk.Success {
		return fmt.Errorf("voxelengine: vkEndCommandBuffer failed: %d", r)
	}

	waitStages := []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sync.ImageAvailable},
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sync.RenderFinished},
	}
	if r := vk.QueueSubmit(e.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, sync.InFlight); r != vk.Success {
		return fmt.Errorf("voxelengine: vkQueueSubmit failed: %d", r)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount:  1,
		PWaitSemaphores:     []vk.Semaphore{sync.RenderFinished},
		SwapchainCount:      1,
		PSwapchains:         []vk.Swapchain{e.swapchain.Handle},
		PImageIndices:       []uint32{imageIndex},
	}
	presentRes := vk.QueuePresent(e.device.GraphicsQueue, &presentInfo)
	if presentRes == vk.ErrorOutOfDate || presentRes == vk.Suboptimal {
		return e.resize()
	}
	if presentRes != vk.Success {
		return fmt.Errorf("voxelengine: vkQueuePresentKHR failed: %d", presentRes)
	}
	return nil
}

// buildFrame meshes/culls the live scene: NewFrame, push every entity's
// mesh, upload the resulting vertex/transform ranges, then build (direct
// backend) or cull (indirect backend) each active camera's draw list.
func (e *Engine) buildFrame() {
	e.core.NewFrame()
	e.views.Each(func(id ecs.ID, _ *drawer.VoxelView) {
		e.core.PushMesh(id)
	})

	e.buffers.UploadVertices(e.core.Vertices())
	e.buffers.UploadTransforms(e.core.Transforms())

	// The direct backend needs no pre-pass: recordVoxelDraws calls
	// Direct.Build per camera when it records that camera's draws. The
	// indirect backend must cull before recording, since its draw list
	// comes from a GPU buffer the upload below has to fill first.
	if e.useIndirect {
		e.indirect.BuildDrawData()
		e.indirect.CullPass(drawer.CullPassInput{Camera: e.shadowCamera})
		e.indirect.CullPass(drawer.CullPassInput{Camera: e.mainCamera})
	}
}

func (e *Engine) recordShadowPass(cmd vk.CommandBuffer) {
	e.graph.Shadow.Begin(cmd)
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, e.pipelines.ShadowPipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, e.pipelines.VoxelPipeLayout, 0, 1, []vk.DescriptorSet{e.voxelSet}, 0, nil)
	e.pushViewProj(cmd, e.shadowCamera)
	e.recordVoxelDraws(cmd, e.shadowCamera, 1)
	e.graph.Shadow.End(cmd)
}

func (e *Engine) recordForwardPass(cmd vk.CommandBuffer) {
	e.graph.Forward.Begin(cmd, [4]float32{0.05, 0.05, 0.08, 1})
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, e.pipelines.ForwardPipeline)
	sets := []vk.DescriptorSet{e.voxelSet, e.graph.Shadow.DescriptorSet}
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, e.pipelines.VoxelPipeLayout, 0, 2, sets, 0, nil)
	e.pushViewProj(cmd, e.mainCamera)
	e.recordVoxelDraws(cmd, e.mainCamera, 0)
	e.graph.Forward.End(cmd)
}

func (e *Engine) pushViewProj(cmd vk.CommandBuffer, cam *mathx.Camera) {
	vp := voxelPushConstants{viewProj: cam.ProjView()}
	vk.CmdPushConstants(cmd, e.pipelines.VoxelPipeLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0,
		uint32(unsafe.Sizeof(vp)), unsafe.Pointer(&vp))
}

// recordVoxelDraws binds the shared vertex/index buffer once and issues
// either direct (vkCmdDrawIndexed per merged face-run) or indirect
// (one vkCmdDrawIndexedIndirect per camera, sourced from the CPU-culled
// command list this frame already uploaded) draw calls for cam, whose
// camera slot in the MaxActiveCameras output partition is indirectSlot.
func (e *Engine) recordVoxelDraws(cmd vk.CommandBuffer, cam *mathx.Camera, indirectSlot int) {
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{e.buffers.VertexBuffer}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cmd, e.buffers.IndexBuffer, 0, vk.IndexTypeUint32)

	if e.useIndirect {
		commands := e.indirect.Commands(cam)
		if len(commands) == 0 {
			return
		}
		offset, count := e.buffers.UploadIndirectCommands(indirectSlot, commands)
		vk.CmdDrawIndexedIndirect(cmd, e.buffers.IndirectBuffer, offset, count, indirectCommandSize)
		return
	}

	for _, draw := range e.direct.Build(cam) {
		indexCount := draw.VertexCount * 3 / 2
		firstIndex := draw.FirstVertex * 3 / 2
		vk.CmdDrawIndexed(cmd, indexCount, 1, firstIndex, 0, draw.FirstInstance)
	}
}

func (e *Engine) recordBlitPass(cmd vk.CommandBuffer, imageIndex uint32) {
	e.graph.Swapchain.Begin(cmd, imageIndex)
	e.graph.Swapchain.Blit(cmd, e.graph.Forward.ResultingImageSet)
	e.graph.Swapchain.End(cmd)
}

// resize is the resize-on-suboptimal sequence: idle the
// device, recreate the swapchain at the window's current framebuffer
// size, then the render graph's extent-dependent passes, then the
// depth-pyramid reduce descriptor sets (the pyramid itself was just
// rebuilt at the new extent).
func (e *Engine) resize() error {
	vk.DeviceWaitIdle(e.device.Handle)

	width, height := e.window.FramebufferSize()
	if width == 0 || height == 0 {
		return nil // minimized; skip until the window is restored
	}
	if err := e.swapchain.Recreate(uint32(width), uint32(height)); err != nil {
		return err
	}
	if err := e.graph.Resize(uint32(width), uint32(height), e.swapchain.Views, e.swapchain.Extent); err != nil {
		return err
	}
	if err := e.graph.Pyramid.AllocateReduceSets(e.caches, e.pipelines.ReduceLayout, e.graph.Forward.DepthView); err != nil {
		return err
	}
	e.mainCamera.SetViewport(width, height)
	return nil
}

// Close idles the device, flushes every frame-lagged deletion, and tears
// down every subsystem in reverse construction order.
func (e *Engine) Close() {
	vk.DeviceWaitIdle(e.device.Handle)
	e.dq.Flush()

	e.buffers.Destroy()
	e.pipelines.Destroy()
	e.graph.Destroy()
	e.swapchain.Destroy()
	e.caches.Destroy()
	vk.DestroySurface(e.device.Instance, e.surface, nil)
	e.device.Destroy()
	e.window.Close()
}
