package providers

import "context"

// Capability names an optional operation an adapter may support.
type Capability string

const (
	CapabilityGenerate Capability = "generate"
	CapabilityEdit     Capability = "edit"
	CapabilityInpaint  Capability = "inpaint"
	CapabilityUpscale  Capability = "upscale"
	CapabilityVariants Capability = "variants"
)

// Info is the static capability descriptor for one provider.
type Info struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Models       []string     `json:"models"`
	Capabilities []Capability `json:"features"`
	CostPerImage float64      `json:"costPerImage"`
}

// Has reports whether the descriptor declares the given capability.
func (i Info) Has(c Capability) bool {
	for _, have := range i.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Advanced carries optional tuning parameters. Adapters that do not support
// a parameter silently ignore it.
type Advanced struct {
	Seed           *int64
	Steps          *int
	CFGScale       *float64
	NegativePrompt string
	Sampler        string
}

// GenerateParams is the normalized text-to-image request.
type GenerateParams struct {
	Prompt      string
	Model       string
	AspectRatio string
	Count       int
	Advanced    Advanced
}

// EditParams is the normalized image-to-image request.
type EditParams struct {
	Prompt   string
	Image    []byte
	MIME     string
	Advanced Advanced
}

// InpaintParams adds a mask to an edit request.
type InpaintParams struct {
	Prompt   string
	Image    []byte
	Mask     []byte
	MIME     string
	Advanced Advanced
}

// UpscaleParams is the normalized upscale request.
type UpscaleParams struct {
	Image []byte
	MIME  string
	Scale int
}

// Image is one generated image.
type Image struct {
	Data []byte
	MIME string
}

// Result is the normalized provider output. Cost is the TOTAL cost for the
// whole batch; callers divide by len(Images) for per-image cost.
type Result struct {
	Images []Image
	Cost   float64
}

// Generator is the contract implemented by all adapters.
type Generator interface {
	Generate(ctx context.Context, p GenerateParams) (*Result, error)
}

// Editor is implemented by adapters that support prompt-driven edits.
type Editor interface {
	Edit(ctx context.Context, p EditParams) (*Result, error)
}

// Inpainter is implemented by adapters that support masked edits.
type Inpainter interface {
	Inpaint(ctx context.Context, p InpaintParams) (*Result, error)
}

// Upscaler is implemented by adapters that support upscaling.
type Upscaler interface {
	Upscale(ctx context.Context, p UpscaleParams) (*Result, error)
}

// Adapter is one registered provider integration.
type Adapter interface {
	Generator
	Info() Info
}

// KeySource resolves the effective API key for a provider at call time.
type KeySource interface {
	Key(ctx context.Context, provider string) (string, error)
}

// pixelDimensions maps the supported aspect ratios to pixel sizes for
// vendors that take explicit width/height.
var pixelDimensions = map[string][2]int{
	"1:1":  {1024, 1024},
	"16:9": {1344, 768},
	"9:16": {768, 1344},
	"4:3":  {1152, 896},
	"3:4":  {896, 1152},
}

func dimensionsFor(aspectRatio string) (int, int) {
	if d, ok := pixelDimensions[aspectRatio]; ok {
		return d[0], d[1]
	}
	d := pixelDimensions["1:1"]
	return d[0], d[1]
}
