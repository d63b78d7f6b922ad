package gpu

import (
	"encoding/binary"
	"testing"

	vk "github.com/goki/vulkan"
)

// buildMinimalSPIRV hand-assembles a tiny SPIR-V module with one
// UniformConstant/SampledImage variable (id 5) and one PushConstant
// variable (id 8), to exercise ReflectSPIRV's classifier without needing a
// real shader compiler.
func buildMinimalSPIRV() []byte {
	word := func(wordCount, opcode uint32) uint32 { return wordCount<<16 | opcode }

	words := []uint32{
		0x07230203, // magic
		0x00010000, // version
		0,          // generator
		9,          // bound
		0,          // schema

		word(9, 25), 2, 0, 0, 0, 0, 0, 0, 0, // OpTypeImage %2
		word(3, 27), 3, 2, // OpTypeSampledImage %3 = image(%2)
		word(4, 32), 4, 0, 3, // OpTypePointer %4 UniformConstant %3
		word(4, 59), 4, 5, 0, // OpVariable %5 : %4, UniformConstant

		word(2, 30), 6, // OpTypeStruct %6
		word(4, 32), 7, 9, 6, // OpTypePointer %7 PushConstant %6
		word(4, 59), 7, 8, 9, // OpVariable %8 : %7, PushConstant
	}

	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

func TestReflectSPIRVClassifiesBindingsAndPushConstants(t *testing.T) {
	r, err := ReflectSPIRV(buildMinimalSPIRV(), vk.ShaderStageFragmentBit)
	if err != nil {
		t.Fatalf("ReflectSPIRV: %v", err)
	}
	if len(r.Bindings) != 1 || r.Bindings[0].Kind != KindSampledImage {
		t.Fatalf("expected one SampledImage binding, got %+v", r.Bindings)
	}
	if len(r.PushConstants) != 1 {
		t.Fatalf("expected one push constant range, got %+v", r.PushConstants)
	}
}

func TestReflectSPIRVRejectsBadMagic(t *testing.T) {
	bad := make([]byte, 20)
	if _, err := ReflectSPIRV(bad, vk.ShaderStageVertexBit); err == nil {
		t.Fatal("expected an error for a non-SPIR-V blob")
	}
}
