package domain

type Action string

const (
	ActionAdd      Action = "add"
	ActionStrip    Action = "strip"
	ActionUpdate   Action = "update"
	ActionScramble Action = "scramble"
)

// WritesAttribution reports whether the action writes copyright/author tags.
// add and update behave identically: both overwrite unconditionally.
func (a Action) WritesAttribution() bool {
	return a == ActionAdd || a == ActionUpdate
}

type ScrambleType string

const (
	ScramblePixelShift  ScrambleType = "pixel-shift"
	ScrambleWatermark   ScrambleType = "watermark"
	ScrambleBlurRegions ScrambleType = "blur-regions"
	ScrambleColorShift  ScrambleType = "color-shift"
	ScrambleNoise       ScrambleType = "noise"
)

type WatermarkPosition string

const (
	WatermarkTopLeft      WatermarkPosition = "top-left"
	WatermarkTopRight     WatermarkPosition = "top-right"
	WatermarkTopCenter    WatermarkPosition = "top-center"
	WatermarkBottomLeft   WatermarkPosition = "bottom-left"
	WatermarkBottomRight  WatermarkPosition = "bottom-right"
	WatermarkBottomCenter WatermarkPosition = "bottom-center"
	WatermarkCenter       WatermarkPosition = "center"
)

const (
	DefaultQuality           = 85
	DefaultMaxWidth          = 1920
	DefaultScrambleIntensity = 50
	DefaultWatermarkText     = "© Protected"
	DefaultWatermarkOpacity  = 0.5
	SoftwareTag              = "image-batch"

	// PNG sources above either threshold are re-encoded as JPEG when optimising.
	LargePNGBytes  = 512 << 10
	LargePNGPixels = 1_000_000
)

// ProcessOptions is applied uniformly to every item of one batch.
type ProcessOptions struct {
	Action            Action            `json:"action" validate:"required,oneof=add strip update scramble"`
	Copyright         string            `json:"copyright,omitempty" validate:"max=1024"`
	Author            string            `json:"author,omitempty" validate:"max=1024"`
	RemoveGPS         bool              `json:"removeGPS,omitempty"`
	Optimize          bool              `json:"optimize,omitempty"`
	MaxWidth          int               `json:"maxWidth,omitempty" validate:"omitempty,min=1,max=20000"`
	Quality           int               `json:"quality,omitempty" validate:"omitempty,min=1,max=100"`
	KeepColorProfile  bool              `json:"keepColorProfile,omitempty"`
	ScrambleType      ScrambleType      `json:"scrambleType,omitempty"`
	ScrambleIntensity *int              `json:"scrambleIntensity,omitempty" validate:"omitempty,min=0,max=100"`
	WatermarkText     string            `json:"watermarkText,omitempty" validate:"max=256"`
	WatermarkPosition WatermarkPosition `json:"watermarkPosition,omitempty"`
}

// WithDefaults fills unset numeric and watermark fields.
func (o ProcessOptions) WithDefaults() ProcessOptions {
	if o.Quality <= 0 {
		o.Quality = DefaultQuality
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.ScrambleIntensity == nil {
		v := DefaultScrambleIntensity
		o.ScrambleIntensity = &v
	}
	if o.WatermarkText == "" {
		o.WatermarkText = DefaultWatermarkText
	}
	if o.WatermarkPosition == "" {
		o.WatermarkPosition = WatermarkCenter
	}
	return o
}

func (o ProcessOptions) Intensity() int {
	if o.ScrambleIntensity == nil {
		return DefaultScrambleIntensity
	}
	v := *o.ScrambleIntensity
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// BatchRequest is the body of a batch-process call.
type BatchRequest struct {
	ImageIDs []string       `json:"imageIds" validate:"required,min=1"`
	Options  ProcessOptions `json:"options"`
}
