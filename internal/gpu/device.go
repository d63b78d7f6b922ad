// Package gpu owns the Vulkan device, per-frame synchronization, the
// manual video-memory suballocator, the frame-lagged deletion queue, and
// the shader-reflection/pipeline-layout caches the rest of the engine
// builds on.
package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/LLLida/lidaEngine-sub000/internal/logx"
)

// FramesInFlight is the number of frames the engine keeps in the air at
// once: the instance transform ring double-buffers across
// exactly this many frames.
const FramesInFlight = 2

// Device owns the Vulkan instance/physical-device/logical-device/queue and
// the per-frame-in-flight synchronization primitives and command buffers.
// Window/surface creation is an external collaborator's job; Device
// is constructed against a surface the caller already owns.
type Device struct {
	Instance       vk.Instance
	PhysicalDevice vk.PhysicalDevice
	Handle         vk.Device
	GraphicsQueue  vk.Queue
	QueueFamily    uint32

	CommandPool vk.CommandPool
	Frames      [FramesInFlight]FrameSync

	log *logx.Logger
}

// FrameSync holds the fence/semaphores and command buffer for one frame in
// flight.
type FrameSync struct {
	CommandBuffer  vk.CommandBuffer
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       vk.Fence
}

// Options are the instance/device selection knobs the CLI exposes
// (`--debug-layers`/`--gpu`).
type Options struct {
	// DebugLayers enables VK_LAYER_KHRONOS_validation if the platform has
	// it installed; its absence is a warning, not a failure, matching
	// cogentcore-core's egpu.GPU.Init "missing N required validation
	// layers" degrade-gracefully behavior.
	DebugLayers bool
	// GPUIndex selects the GPUIndex-th physical device that exposes a
	// graphics queue family, in vkEnumeratePhysicalDevices order. 0 is the
	// first such device.
	GPUIndex int
	// InstanceExtensions are extra instance extensions the windowing
	// collaborator requires (platform.RequiredInstanceExtensions' VK_KHR_surface
	// family), appended unconditionally since surface creation fails
	// without them.
	InstanceExtensions []string
}

// NewDevice brings up a Vulkan instance, picks a physical device exposing
// a graphics queue family, creates a logical device and command pool, and
// allocates FramesInFlight command buffers and sync objects (grounded on
// voodoo_vulkan.go's initVulkan/createInstance/createDevice sequence,
// generalized from a single offscreen frame to a multi-frame-in-flight
// ring).
func NewDevice(appName string, log *logx.Logger, opts Options) (*Device, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, fmt.Errorf("gpu: load vulkan loader: %w", err)
	}
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("gpu: init vulkan bindings: %w", err)
	}

	d := &Device{log: log}

	if err := d.createInstance(appName, opts.DebugLayers, opts.InstanceExtensions); err != nil {
		return nil, err
	}
	if err := d.selectPhysicalDevice(opts.GPUIndex); err != nil {
		return nil, err
	}
	if err := d.createLogicalDevice(); err != nil {
		return nil, err
	}
	if err := d.createCommandPool(); err != nil {
		return nil, err
	}
	if err := d.createFrameSync(); err != nil {
		return nil, err
	}

	log.Info("gpu device ready", "frames_in_flight", FramesInFlight, "debug_layers", opts.DebugLayers)
	return d, nil
}

func (d *Device) createInstance(appName string, debugLayers bool, instanceExts []string) error {
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   appName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "lidaEngine-sub000\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion11,
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &appInfo,
	}

	if len(instanceExts) > 0 {
		exts := make([]string, len(instanceExts))
		for i, e := range instanceExts {
			exts[i] = e + "\x00"
		}
		createInfo.EnabledExtensionCount = uint32(len(exts))
		createInfo.PpEnabledExtensionNames = exts
	}

	var layers []string
	if debugLayers {
		available, err := availableInstanceLayers()
		if err != nil {
			return fmt.Errorf("gpu: enumerate instance layers: %w", err)
		}
		if hasLayer(available, "VK_LAYER_KHRONOS_validation") {
			layers = []string{"VK_LAYER_KHRONOS_validation\x00"}
		} else {
			d.log.Warn("debug layers requested but VK_LAYER_KHRONOS_validation is not installed")
		}
	}
	if len(layers) > 0 {
		createInfo.EnabledLayerCount = uint32(len(layers))
		createInfo.PpEnabledLayerNames = layers
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return fmt.Errorf("gpu: vkCreateInstance failed: %d", res)
	}
	vk.InitInstance(instance)
	d.Instance = instance
	return nil
}

func availableInstanceLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceLayerProperties failed: %d", res)
	}
	props := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, props); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceLayerProperties failed: %d", res)
	}
	names := make([]string, 0, count)
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.LayerName[:]))
	}
	return names, nil
}

func hasLayer(available []string, name string) bool {
	for _, a := range available {
		if a == name {
			return true
		}
	}
	return false
}

// selectPhysicalDevice picks the gpuIndex-th device (in enumeration order)
// that exposes a graphics queue family. An out-of-range index is an error
// rather than a silent fallback, so `--gpu` typos fail at startup instead
// of silently picking the wrong GPU.
func (d *Device) selectPhysicalDevice(gpuIndex int) error {
	var count uint32
	vk.EnumeratePhysicalDevices(d.Instance, &count, nil)
	if count == 0 {
		return fmt.Errorf("gpu: no Vulkan physical devices found")
	}
	devices := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(d.Instance, &count, devices)

	seen := 0
	for _, dev := range devices {
		var qfCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(dev, &qfCount, nil)
		families := make([]vk.QueueFamilyProperties, qfCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(dev, &qfCount, families)
		for i, qf := range families {
			qf.Deref()
			if vk.QueueFlagBits(qf.QueueFlags)&vk.QueueGraphicsBit != 0 {
				if seen == gpuIndex {
					d.PhysicalDevice = dev
					d.QueueFamily = uint32(i)
					return nil
				}
				seen++
				break
			}
		}
	}
	return fmt.Errorf("gpu: no physical device at index %d exposes a graphics queue family (%d found)", gpuIndex, seen)
}

func (d *Device) createLogicalDevice() error {
	priority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.QueueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{priority},
	}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{queueInfo},
	}
	var device vk.Device
	if res := vk.CreateDevice(d.PhysicalDevice, &deviceInfo, nil, &device); res != vk.Success {
		return fmt.Errorf("gpu: vkCreateDevice failed: %d", res)
	}
	d.Handle = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, d.QueueFamily, 0, &queue)
	d.GraphicsQueue = queue
	return nil
}

func (d *Device) createCommandPool() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.QueueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.Handle, &poolInfo, nil, &pool); res != vk.Success {
		return fmt.Errorf("gpu: vkCreateCommandPool failed: %d", res)
	}
	d.CommandPool = pool
	return nil
}

func (d *Device) createFrameSync() error {
	for i := 0; i < FramesInFlight; i++ {
		allocInfo := vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        d.CommandPool,
			Level:              vk.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}
		cmdBufs := make([]vk.CommandBuffer, 1)
		if res := vk.AllocateCommandBuffers(d.Handle, &allocInfo, cmdBufs); res != vk.Success {
			return fmt.Errorf("gpu: vkAllocateCommandBuffers failed: %d", res)
		}

		semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		var imgAvail, renderDone vk.Semaphore
		if res := vk.CreateSemaphore(d.Handle, &semInfo, nil, &imgAvail); res != vk.Success {
			return fmt.Errorf("gpu: vkCreateSemaphore failed: %d", res)
		}
		if res := vk.CreateSemaphore(d.Handle, &semInfo, nil, &renderDone); res != vk.Success {
			return fmt.Errorf("gpu: vkCreateSemaphore failed: %d", res)
		}

		fenceInfo := vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}
		var fence vk.Fence
		if res := vk.CreateFence(d.Handle, &fenceInfo, nil, &fence); res != vk.Success {
			return fmt.Errorf("gpu: vkCreateFence failed: %d", res)
		}

		d.Frames[i] = FrameSync{
			CommandBuffer:  cmdBufs[0],
			ImageAvailable: imgAvail,
			RenderFinished: renderDone,
			InFlight:       fence,
		}
	}
	return nil
}

// FindMemoryType selects a memory type index matching typeBits and the
// required property flags, the same search every buffer/image allocation
// needs before calling vkAllocateMemory.
func (d *Device) FindMemoryType(typeBits uint32, properties vk.MemoryPropertyFlagBits) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.PhysicalDevice, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		typeMatches := typeBits&(1<<i) != 0
		propsMatch := vk.MemoryPropertyFlagBits(memProps.MemoryTypes[i].PropertyFlags)&properties == properties
		if typeMatches && propsMatch {
			return i, nil
		}
	}
	return 0, fmt.Errorf("gpu: no memory type matches requirements (bits=%#x, props=%v)", typeBits, properties)
}

// Destroy tears the device down in reverse dependency order. Called after
// the deletion queue has retired every frame-lagged resource.
func (d *Device) Destroy() {
	for _, f := range d.Frames {
		vk.DestroyFence(d.Handle, f.InFlight, nil)
		vk.DestroySemaphore(d.Handle, f.RenderFinished, nil)
		vk.DestroySemaphore(d.Handle, f.ImageAvailable, nil)
	}
	vk.DestroyCommandPool(d.Handle, d.CommandPool, nil)
	vk.DestroyDevice(d.Handle, nil)
	vk.DestroyInstance(d.Instance, nil)
}
