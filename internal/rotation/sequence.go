// Package rotation runs a recognizer over the four quarter-turn orientations
// of an image and keeps the longest text it finds.
package rotation

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"iter"

	"github.com/disintegration/imaging"
)

// Candidates is the number of orientations tried per scan.
const Candidates = 4

// StepDegrees is the clockwise rotation between consecutive candidates.
const StepDegrees = 90

// ErrInvalidAngle is returned by Rotate for angles that are not a multiple of 90.
var ErrInvalidAngle = errors.New("rotation angle must be a multiple of 90")

// Sequence yields the input image followed by three successive clockwise
// quarter turns. It only holds the current candidate: producing the next one
// drops the reference to the previous one. A Sequence cannot be restarted.
type Sequence struct {
	current image.Image
	next    int
	closed  bool
}

// NewSequence returns a sequence whose first candidate is img itself.
func NewSequence(img image.Image) *Sequence {
	return &Sequence{current: img}
}

// Next returns the next candidate and its clockwise angle in degrees.
// ok is false once all four candidates have been produced or the sequence
// was closed.
func (s *Sequence) Next() (angle int, img image.Image, ok bool) {
	if s.closed || s.current == nil {
		return 0, nil, false
	}
	if s.next >= Candidates {
		s.current = nil
		return 0, nil, false
	}
	if s.next > 0 {
		s.current = rotateClockwise(s.current)
	}
	angle = s.next * StepDegrees
	s.next++
	return angle, s.current, true
}

// Close releases the held candidate. It is safe to call more than once.
func (s *Sequence) Close() {
	s.closed = true
	s.current = nil
}

// All exposes the remaining candidates as an iterator keyed by angle.
// Breaking out of the loop closes the sequence.
func (s *Sequence) All() iter.Seq2[int, image.Image] {
	return func(yield func(int, image.Image) bool) {
		defer s.Close()
		for {
			angle, img, ok := s.Next()
			if !ok {
				return
			}
			if !yield(angle, img) {
				return
			}
		}
	}
}

// Rotate turns img clockwise by degrees, which must be a multiple of 90
// (negative values turn counter-clockwise). Gray, RGBA, NRGBA and Paletted
// sources keep their pixel format; other formats come back as NRGBA.
func Rotate(img image.Image, degrees int) (image.Image, error) {
	if degrees%StepDegrees != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAngle, degrees)
	}
	turns := ((degrees/StepDegrees)%Candidates + Candidates) % Candidates
	var rotated *image.NRGBA
	switch turns {
	case 0:
		return img, nil
	case 1:
		rotated = imaging.Rotate270(img)
	case 2:
		rotated = imaging.Rotate180(img)
	default:
		rotated = imaging.Rotate90(img)
	}
	return preserveFormat(img, rotated), nil
}

// imaging's RotateN helpers turn counter-clockwise.
func rotateClockwise(img image.Image) image.Image {
	return preserveFormat(img, imaging.Rotate270(img))
}

func preserveFormat(src image.Image, rotated *image.NRGBA) image.Image {
	b := rotated.Bounds()
	switch s := src.(type) {
	case *image.Gray:
		dst := image.NewGray(b)
		draw.Draw(dst, b, rotated, b.Min, draw.Src)
		return dst
	case *image.RGBA:
		dst := image.NewRGBA(b)
		draw.Draw(dst, b, rotated, b.Min, draw.Src)
		return dst
	case *image.Paletted:
		dst := image.NewPaletted(b, s.Palette)
		draw.Draw(dst, b, rotated, b.Min, draw.Src)
		return dst
	default:
		return rotated
	}
}
