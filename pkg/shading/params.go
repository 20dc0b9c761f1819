// Package shading implements the PBR shading core: parameter blocks bound at
// pass, object and instance frequency, the vertex transform stage, surface
// sampling, the Cook-Torrance BRDF, hemispherical ambient lighting and HDR
// tonemapping.
//
// Everything in this package is a pure function over read-only snapshots.
// Parameter blocks are bound before a draw batch begins and must not change
// until it ends; invocations never communicate and may run in any order.
package shading

import (
	"fmt"

	"github.com/taigrr/lumen/pkg/math3d"
)

// PassData holds the pass-frequency bindings: one instance per render pass,
// rebuilt every frame by the owning pass manager, read-only during the pass.
type PassData struct {
	View       math3d.Mat4
	Projection math3d.Mat4
	Eye        math3d.Vec3 // Camera position in world space
}

// DirectionalLight is one directional light. Direction is the direction the
// light travels, i.e. it points from the light toward the scene.
type DirectionalLight struct {
	Direction math3d.Vec3
	Color     math3d.Vec3 // Linear radiance, may exceed 1 (HDR)
}

// AmbientCube is a three-band vertical gradient approximating environment
// light without an environment map: top for +Y, bottom for -Y, middle at
// the horizon.
type AmbientCube struct {
	Top    math3d.Vec3
	Middle math3d.Vec3
	Bottom math3d.Vec3
}

// NumLights is the fixed directional light count of the lit shading path.
const NumLights = 3

// LightData is the per-frame light snapshot: three named directional lights
// plus the ambient gradient. Published atomically between draws.
type LightData struct {
	Main    DirectionalLight
	Fill    DirectionalLight
	Back    DirectionalLight
	Ambient AmbientCube
}

// Lights returns the directional lights in evaluation order.
func (l *LightData) Lights() [NumLights]DirectionalLight {
	return [NumLights]DirectionalLight{l.Main, l.Fill, l.Back}
}

// Texture is the sampler contract the surface sampling stage needs. Sample
// returns an RGBA texel in [0,1] for UV coordinates; whether the values are
// linear or sRGB-decoded is fixed when the texture is bound.
type Texture interface {
	Sample(u, v float64) math3d.Vec4
}

// Material holds the object-frequency bindings: up to five texture maps,
// a shared sampler configuration (carried by the textures themselves) and
// the scalar material parameters. Immutable for the lifetime of a draw.
//
// Any texture may be nil, in which case the stage falls back to the neutral
// value for that map (white base, flat normal, full metallic-roughness,
// no occlusion, no emission) modulated by the factors below.
type Material struct {
	BaseColor         Texture // sRGB-decoded at bind time
	Normal            Texture // Linear; XY in the first two channels
	MetallicRoughness Texture // Linear; metallic=B, roughness=G
	Occlusion         Texture // Linear; occlusion=R
	Emissive          Texture // sRGB-decoded at bind time

	BaseColorFactor math3d.Vec4
	MetallicFactor  float64
	RoughnessFactor float64
	EmissiveFactor  math3d.Vec3

	EmissivePower float64 // Scales the emissive contribution
	AlphaCutoff   float64 // Fragments with base alpha below this are discarded; 0 disables

	// OcclusionUV1 selects the second UV set for the occlusion map, the
	// only map the asset path ever binds to TEXCOORD_1.
	OcclusionUV1 bool
}

// NewMaterial returns a material with neutral factors and no textures bound.
func NewMaterial() *Material {
	return &Material{
		BaseColorFactor: math3d.V4(1, 1, 1, 1),
		MetallicFactor:  1,
		RoughnessFactor: 1,
		EmissiveFactor:  math3d.Zero3(),
		EmissivePower:   0,
		AlphaCutoff:     0,
	}
}

// MaxInstances is the instance matrix capacity of one draw.
const MaxInstances = 256

// InstanceBuffer is the instance-frequency binding: a contiguous array of
// model matrices indexed by instance id. Refreshed per frame by the scene
// update, immutable during a draw call.
type InstanceBuffer struct {
	matrices []math3d.Mat4
}

// NewInstanceBuffer creates an instance buffer holding the given matrices.
// At most MaxInstances matrices fit in one draw.
func NewInstanceBuffer(matrices []math3d.Mat4) (*InstanceBuffer, error) {
	if len(matrices) > MaxInstances {
		return nil, fmt.Errorf("instance buffer: %d matrices exceeds capacity %d", len(matrices), MaxInstances)
	}
	buf := &InstanceBuffer{matrices: make([]math3d.Mat4, len(matrices))}
	copy(buf.matrices, matrices)
	return buf, nil
}

// SingleInstance creates a buffer holding one model matrix at id 0.
func SingleInstance(model math3d.Mat4) *InstanceBuffer {
	return &InstanceBuffer{matrices: []math3d.Mat4{model}}
}

// At returns the model matrix for instance id. Out-of-range ids return
// identity rather than panicking; ids are validated where draws are built.
func (b *InstanceBuffer) At(id int) math3d.Mat4 {
	if id < 0 || id >= len(b.matrices) {
		return math3d.Identity()
	}
	return b.matrices[id]
}

// Len returns the number of instances in the buffer.
func (b *InstanceBuffer) Len() int {
	return len(b.matrices)
}
