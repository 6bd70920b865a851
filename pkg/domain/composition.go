package domain

import "fmt"

// Composition describes a programmatically defined visual sequence to be rendered.
type Composition struct {
	ID               string         `json:"id" mapstructure:"id"`
	Width            int            `json:"width" mapstructure:"width"`
	Height           int            `json:"height" mapstructure:"height"`
	FPS              float64        `json:"fps" mapstructure:"fps"`
	DurationInFrames int            `json:"duration_in_frames" mapstructure:"duration_in_frames"`
	Props            map[string]any `json:"props,omitempty" mapstructure:"props"`
}

// Validate checks that the composition can be rendered.
func (c Composition) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: composition id is required", ErrInvalidRequest)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: composition %q has invalid dimensions %dx%d", ErrInvalidRequest, c.ID, c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: composition %q has invalid fps %v", ErrInvalidRequest, c.ID, c.FPS)
	}
	if c.DurationInFrames <= 0 {
		return fmt.Errorf("%w: composition %q has no frames", ErrInvalidRequest, c.ID)
	}
	return nil
}

// FrameRange is an inclusive range of frame indices.
type FrameRange struct {
	Start int `json:"start" mapstructure:"start"`
	End   int `json:"end" mapstructure:"end"`
}

// FullRange returns the range covering every frame of the composition.
func FullRange(c Composition) FrameRange {
	return FrameRange{Start: 0, End: c.DurationInFrames - 1}
}

// Len returns the number of frames in the range.
func (r FrameRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Validate checks the range against the composition duration.
func (r FrameRange) Validate(c Composition) error {
	if r.Start < 0 || r.End < r.Start {
		return fmt.Errorf("%w: invalid frame range %d-%d", ErrInvalidRequest, r.Start, r.End)
	}
	if r.End >= c.DurationInFrames {
		return fmt.Errorf("%w: frame range %d-%d exceeds composition duration %d", ErrInvalidRequest, r.Start, r.End, c.DurationInFrames)
	}
	return nil
}

// Frame is one captured output frame.
type Frame struct {
	Index int
	Data  []byte
}

// Artifact references the output produced by a successful render.
type Artifact struct {
	Location string `json:"location"`
	Frames   int    `json:"frames"`
	Format   string `json:"format"`
}
