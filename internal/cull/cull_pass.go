package cull

// CullPassComputeShader is the GLSL compute shader source for the
// indirect backend's per-camera cull_pass dispatch: one thread per
// instance, workgroup size 64, implementing in order the cull-mask test,
// the frustum test, the (perspective-only) occlusion test, and per-face
// backface culling, writing a vkCmdDrawIndexedIndirect command per
// surviving face. Four shader variants exist in the original engine,
// selected by (camera.type, draw-indirect-count availability); this
// source is the perspective, count-buffer variant, translated from
// culling.h/global.h's layout and step order — the other three drop the
// occlusion test (orthographic) and/or the atomic counter (no
// VK_KHR_draw_indirect_count), each a straightforward subset of this one.
const CullPassComputeShader = `#version 450
#extension GL_GOOGLE_include_directive : require

#include "global.h"
#include "culling.h"

layout (local_size_x = 64) in;

layout (set = 1, binding = 0) readonly buffer DrawDataBuffer { Draw_Data draws[]; };
layout (set = 1, binding = 1) readonly buffer TransformBuffer { Transform transforms[]; };
layout (set = 1, binding = 2) writeonly buffer DrawCommandBuffer { Draw_Command commands[]; };
layout (set = 1, binding = 3) buffer DrawCountBuffer { Draw_Count counts[]; };
layout (set = 2, binding = 0) uniform sampler2D depth_pyramid;

layout (push_constant) uniform PushConstant {
  mat4 projview_matrix;
  vec3 camera_front;
  uint cull_mask;
  vec3 camera_position;
  uint camera_slot; // log2(cull_mask); indexes the per-camera counter
  uint out_offset;
  uint in_offset;
  uint num_draws;
} pc;

const vec3 face_normals[6] = vec3[6](
  vec3(-1, 0, 0), vec3(1, 0, 0),
  vec3(0, -1, 0), vec3(0, 1, 0),
  vec3(0, 0, -1), vec3(0, 0, 1)
);

void main()
{
  uint i = gl_GlobalInvocationID.x;
  if (i >= pc.num_draws) return;

  Draw_Data d = draws[pc.in_offset + i];
  if ((d.cull_mask & pc.cull_mask) == 0) return;

  Transform transform = transforms[d.first_instance];
  vec3 box[3];
  box[0] = rotate_by_quat(vec3(d.half_size_x, 0, 0), transform.rotation);
  box[1] = rotate_by_quat(vec3(0, d.half_size_y, 0), transform.rotation);
  box[2] = rotate_by_quat(vec3(0, 0, d.half_size_z), transform.rotation);

  OBB obb = calculate_obb(transform, box);
  if (!test_frustum_obb(pc.projview_matrix, obb)) return;

  if (occlussion_cull(d, transform, pc.camera_position, pc.projview_matrix, box, depth_pyramid) != 0) return;

  uint vertex_counts[6] = uint[6](d.vertex_count0, d.vertex_count1, d.vertex_count2,
                                  d.vertex_count3, d.vertex_count4, d.vertex_count5);
  uint first_vertex = d.first_vertex;
  for (uint face = 0; face < 6; face++) {
    uint count = vertex_counts[face];
    uint fv = first_vertex;
    first_vertex += count;
    if (count == 0) continue;

    vec3 normal = rotate_by_quat(face_normals[face], transform.rotation);
    if (dot(pc.camera_front, normal) > 0) continue; // backface

    uint slot = atomicAdd(counts[pc.camera_slot].count, 1);
    Draw_Command cmd;
    cmd.index_count = count * 3 / 2;
    cmd.instance_count = 1;
    cmd.first_index = fv * 3 / 2;
    cmd.vertex_offset = fv;
    cmd.first_instance = d.first_instance;
    commands[pc.out_offset + slot] = cmd;
  }
}
`
