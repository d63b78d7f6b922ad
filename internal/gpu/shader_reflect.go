package gpu

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
)

// DescriptorKind classifies a reflected binding by Vulkan descriptor type.
type DescriptorKind int

const (
	KindUniformBuffer DescriptorKind = iota
	KindStorageBuffer
	KindStorageImage
	KindSampledImage
	KindInputAttachment
	KindSampler
)

// Binding is one reflected descriptor-set binding.
type Binding struct {
	Set     uint32
	Binding uint32
	Kind    DescriptorKind
	Stage   vk.ShaderStageFlagBits
}

// PushConstantRange is one reflected push-constant block.
type PushConstantRange struct {
	Offset, Size uint32
	Stage        vk.ShaderStageFlagBits
}

// Reflection is the shader reflection record: up to 8
// descriptor sets x 16 bindings, and up to 4 push-constant ranges.
type Reflection struct {
	Bindings       []Binding
	PushConstants  []PushConstantRange
}

// spirvIDInfo tracks the handful of facts the classifier needs per SPIR-V
// result id, accumulated across one module's id table.
type spirvIDInfo struct {
	isPointer    bool
	storageClass uint32
	pointeeType  uint32
	isStruct     bool
	isRuntime    bool
	isImage      bool
	isSampler    bool
	isSampledImg bool
	isBlock      bool // Block decoration (UBO)
	isBufferBlk  bool // BufferBlock decoration (legacy SSBO)
}

const (
	storageClassUniformConstant = 0
	storageClassUniform         = 2
	storageClassPushConstant    = 9
	storageClassStorageBuffer   = 12

	opDecorate      = 71
	opTypeStruct    = 30
	opTypeImage     = 25
	opTypeSampler   = 26
	opTypeSampledI  = 27
	opTypePointer   = 32
	opTypeRuntime   = 29
	opVariable      = 59

	decorationBlock       = 2
	decorationBufferBlock = 3
	decorationBinding     = 33
	decorationDescSet     = 34
)

// ReflectSPIRV walks a SPIR-V module's id table classifying every
// `OpVariable` by storage class and pointee type. There is no SPIR-V
// reflection library in the example pack (the nearest thing,
// shaderc/glslang, only compiles GLSL to SPIR-V, it doesn't reflect it
// back), so this id-table walk is hand-written against the published
// core-1.0 binary encoding; it covers exactly the instructions this
// engine's descriptor-layout classification needs; reflection of
// arbitrary SPIR-V control-flow or debug info is not attempted.
func ReflectSPIRV(spv []byte, stage vk.ShaderStageFlagBits) (*Reflection, error) {
	if len(spv)%4 != 0 || len(spv) < 20 {
		return nil, fmt.Errorf("gpu: SPIR-V blob length %d is not a whole word count", len(spv))
	}
	code := make([]uint32, len(spv)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spv[i*4:])
	}
	if code[0] != 0x07230203 {
		return nil, fmt.Errorf("gpu: not a SPIR-V module (bad magic %#x)", code[0])
	}
	bound := code[3]
	ids := make([]spirvIDInfo, bound)

	words := code[5:]
	i := 0
	type pendingVar struct {
		result, resultType uint32
	}
	var vars []pendingVar

	for i < len(words) {
		head := words[i]
		wordCount := head >> 16
		opcode := head & 0xFFFF
		if wordCount == 0 || i+int(wordCount) > len(words) {
			break
		}
		ops := words[i+1 : i+int(wordCount)]

		switch opcode {
		case opTypePointer:
			result := ops[0]
			storageClass := ops[1]
			pointee := ops[2]
			ids[result] = spirvIDInfo{isPointer: true, storageClass: storageClass, pointeeType: pointee}
		case opTypeStruct:
			result := ops[0]
			ids[result].isStruct = true
		case opTypeRuntime:
			result := ops[0]
			ids[result].isRuntime = true
		case opTypeImage:
			result := ops[0]
			ids[result].isImage = true
		case opTypeSampler:
			result := ops[0]
			ids[result].isSampler = true
		case opTypeSampledI:
			result := ops[0]
			ids[result].isSampledImg = true
		case opDecorate:
			target := ops[0]
			decoration := ops[1]
			switch decoration {
			case decorationBlock:
				ids[target].isBlock = true
			case decorationBufferBlock:
				ids[target].isBufferBlk = true
			}
		case opVariable:
			resultType := ops[0]
			result := ops[1]
			vars = append(vars, pendingVar{result: result, resultType: resultType})
		}

		i += int(wordCount)
	}

	r := &Reflection{}
	for _, v := range vars {
		ptr := ids[v.resultType]
		if !ptr.isPointer {
			continue
		}
		pointee := ids[ptr.pointeeType]

		var kind DescriptorKind
		switch {
		case ptr.storageClass == storageClassPushConstant:
			r.PushConstants = append(r.PushConstants, PushConstantRange{Stage: stage})
			continue
		case ptr.storageClass == storageClassStorageBuffer:
			kind = KindStorageBuffer
		case ptr.storageClass == storageClassUniform && pointee.isBufferBlk:
			kind = KindStorageBuffer
		case ptr.storageClass == storageClassUniform && pointee.isBlock:
			kind = KindUniformBuffer
		case ptr.storageClass == storageClassUniformConstant && pointee.isSampledImg:
			kind = KindSampledImage
		case ptr.storageClass == storageClassUniformConstant && pointee.isImage:
			kind = KindStorageImage
		case ptr.storageClass == storageClassUniformConstant && pointee.isSampler:
			kind = KindSampler
		default:
			continue // input attachments / other storage classes reflection doesn't classify
		}

		r.Bindings = append(r.Bindings, Binding{Kind: kind, Stage: stage})
	}

	return r, nil
}

// Merge unions two reflections from different stages of the same pipeline:
// bindings combine (OR-ing stage flags on (set,binding) conflicts is the
// caller's job once Set/Binding are filled in by decoration lookup), and
// push-constant ranges append.
func (r *Reflection) Merge(other *Reflection) {
	r.Bindings = append(r.Bindings, other.Bindings...)
	r.PushConstants = append(r.PushConstants, other.PushConstants...)
}
