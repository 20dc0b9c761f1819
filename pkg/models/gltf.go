package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/render"
)

// Extension names handled by the loader.
const (
	extUnlit            = "KHR_materials_unlit"
	extEmissiveStrength = "KHR_materials_emissive_strength"
)

// GLTFLoader loads glTF/GLB files into Mesh format.
type GLTFLoader struct {
	// GenerateTangents derives tangents from UV gradients for vertices the
	// asset did not author them for.
	GenerateTangents bool
}

// NewGLTFLoader creates a new glTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{GenerateTangents: true}
}

// LoadGLB loads a glTF or binary glTF (.glb) file with default options.
func LoadGLB(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a glTF or GLB file and returns a Mesh with its materials and
// textures resolved.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh := NewMesh(filepath.Base(path))
	textures := newTextureCache(doc, filepath.Dir(path))

	for _, gm := range doc.Materials {
		mat, err := loadMaterial(gm, textures)
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", gm.Name, err)
		}
		mesh.Materials = append(mesh.Materials, mat)
	}

	for _, gm := range doc.Meshes {
		if err := l.processMesh(doc, gm, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", gm.Name, err)
		}
	}

	hasNormals := false
	for _, v := range mesh.Vertices {
		if v.Normal.Len() > 0.001 {
			hasNormals = true
			break
		}
	}
	if !hasNormals {
		mesh.CalculateSmoothNormals()
	}
	if l.GenerateTangents {
		ComputeTangents(mesh)
	}

	mesh.CalculateBounds()

	return mesh, nil
}

// processMesh extracts geometry from a glTF mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, gm *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals [][3]float32
		if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var tangents [][4]float32
		if idx, ok := prim.Attributes[gltf.TANGENT]; ok {
			if tangents, err = modeler.ReadTangent(doc, doc.Accessors[idx], nil); err != nil {
				return fmt.Errorf("read tangents: %w", err)
			}
		}

		var uv0, uv1 [][2]float32
		if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uv0, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
				return fmt.Errorf("read uv0: %w", err)
			}
		}
		if idx, ok := prim.Attributes[gltf.TEXCOORD_1]; ok {
			if uv1, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
				return fmt.Errorf("read uv1: %w", err)
			}
		}

		baseVertex := len(mesh.Vertices)

		for i, p := range positions {
			v := MeshVertex{
				Position: math3d.V3(float64(p[0]), float64(p[1]), float64(p[2])),
			}
			if i < len(normals) {
				n := normals[i]
				v.Normal = math3d.V3(float64(n[0]), float64(n[1]), float64(n[2]))
			}
			if i < len(tangents) {
				t := tangents[i]
				v.Tangent = math3d.V3(float64(t[0]), float64(t[1]), float64(t[2]))
			}
			if i < len(uv0) {
				v.UV0 = math3d.V2(float64(uv0[i][0]), float64(uv0[i][1]))
			}
			if i < len(uv1) {
				v.UV1 = math3d.V2(float64(uv1[i][0]), float64(uv1[i][1]))
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		matIdx := -1
		if prim.Material != nil {
			matIdx = *prim.Material
		}

		if prim.Indices != nil {
			indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
			for i := 0; i+2 < len(indices); i += 3 {
				mesh.Faces = append(mesh.Faces, Face{
					V: [3]int{
						baseVertex + int(indices[i]),
						baseVertex + int(indices[i+1]),
						baseVertex + int(indices[i+2]),
					},
					Material: matIdx,
				})
			}
		} else {
			// No indices, assume sequential triangles
			for i := 0; i+2 < len(positions); i += 3 {
				mesh.Faces = append(mesh.Faces, Face{
					V:        [3]int{baseVertex + i, baseVertex + i + 1, baseVertex + i + 2},
					Material: matIdx,
				})
			}
		}
	}

	return nil
}

// loadMaterial converts one glTF material, resolving its texture references.
// Base color and emissive maps are decoded from sRGB; the data maps stay
// linear.
func loadMaterial(gm *gltf.Material, textures *textureCache) (*Material, error) {
	mat := DefaultMaterial()
	mat.Name = gm.Name

	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		cf := pbr.BaseColorFactorOrDefault()
		mat.BaseColorFactor = math3d.V4(
			float64(cf[0]), float64(cf[1]), float64(cf[2]), float64(cf[3]),
		)
		mat.MetallicFactor = float64(pbr.MetallicFactorOrDefault())
		mat.RoughnessFactor = float64(pbr.RoughnessFactorOrDefault())

		if pbr.BaseColorTexture != nil {
			mat.BaseColorTexture = textures.get(pbr.BaseColorTexture.Index, render.ColorSpaceSRGB)
		}
		if pbr.MetallicRoughnessTexture != nil {
			mat.MetallicRoughnessTexture = textures.get(pbr.MetallicRoughnessTexture.Index, render.ColorSpaceLinear)
		}
	}

	if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
		mat.NormalTexture = textures.get(*gm.NormalTexture.Index, render.ColorSpaceLinear)
	}
	if gm.OcclusionTexture != nil && gm.OcclusionTexture.Index != nil {
		mat.OcclusionTexture = textures.get(*gm.OcclusionTexture.Index, render.ColorSpaceLinear)
		mat.OcclusionUV1 = gm.OcclusionTexture.TexCoord == 1
	}
	if gm.EmissiveTexture != nil {
		mat.EmissiveTexture = textures.get(gm.EmissiveTexture.Index, render.ColorSpaceSRGB)
	}

	ef := gm.EmissiveFactor
	mat.EmissiveFactor = math3d.V3(float64(ef[0]), float64(ef[1]), float64(ef[2]))
	if mat.EmissiveFactor.LenSq() > 0 || mat.EmissiveTexture != nil {
		mat.EmissivePower = 1
	}
	if power, ok := emissiveStrength(gm.Extensions); ok {
		mat.EmissivePower = power
	}

	if gm.AlphaMode == gltf.AlphaMask {
		mat.AlphaCutoff = gm.AlphaCutoffOrDefault()
	}

	if _, ok := gm.Extensions[extUnlit]; ok {
		mat.Unlit = true
	}

	return mat, nil
}

// emissiveStrength parses the KHR_materials_emissive_strength extension.
func emissiveStrength(exts gltf.Extensions) (float64, bool) {
	raw, ok := exts[extEmissiveStrength]
	if !ok {
		return 0, false
	}
	data, ok := raw.(json.RawMessage)
	if !ok {
		return 0, false
	}
	var ext struct {
		EmissiveStrength float64 `json:"emissiveStrength"`
	}
	if err := json.Unmarshal(data, &ext); err != nil || ext.EmissiveStrength <= 0 {
		return 0, false
	}
	return ext.EmissiveStrength, true
}

// textureCache resolves glTF texture indices to decoded render textures,
// keyed by color space so a map reused in both roles decodes once per role.
type textureCache struct {
	doc   *gltf.Document
	dir   string
	cache map[cacheKey]*render.Texture
}

type cacheKey struct {
	index int
	space render.ColorSpace
}

func newTextureCache(doc *gltf.Document, dir string) *textureCache {
	return &textureCache{
		doc:   doc,
		dir:   dir,
		cache: make(map[cacheKey]*render.Texture),
	}
}

// get returns the decoded texture for a glTF texture index, or nil when the
// image is missing or undecodable. Failures fall back to the material's
// factors rather than failing the whole load.
func (c *textureCache) get(index int, space render.ColorSpace) *render.Texture {
	key := cacheKey{index, space}
	if tex, ok := c.cache[key]; ok {
		return tex
	}

	tex := c.load(index, space)
	c.cache[key] = tex
	return tex
}

func (c *textureCache) load(index int, space render.ColorSpace) *render.Texture {
	if index < 0 || index >= len(c.doc.Textures) {
		return nil
	}
	gt := c.doc.Textures[index]
	if gt.Source == nil || *gt.Source >= len(c.doc.Images) {
		return nil
	}
	img := c.doc.Images[*gt.Source]

	var decoded image.Image
	if img.BufferView != nil {
		// Binary GLB: image data lives in a buffer view
		raw, err := modeler.ReadBufferView(c.doc, c.doc.BufferViews[*img.BufferView])
		if err != nil {
			return nil
		}
		if decoded, _, err = image.Decode(bytes.NewReader(raw)); err != nil {
			return nil
		}
	} else if img.URI != "" && !img.IsEmbeddedResource() {
		// External file referenced by relative URI
		tex, err := render.LoadTexture(filepath.Join(c.dir, img.URI), space)
		if err != nil {
			return nil
		}
		return tex
	} else {
		return nil
	}

	return render.TextureFromImage(decoded, space)
}
