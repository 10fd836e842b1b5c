package rotation

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/MeKo-Tech/visionscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns a recognizer that answers from texts in call order.
func scripted(texts ...string) (Recognizer, *[]image.Image) {
	var seen []image.Image
	return func(_ context.Context, img image.Image) (string, error) {
		i := len(seen)
		seen = append(seen, img)
		if i < len(texts) {
			return texts[i], nil
		}
		return "", nil
	}, &seen
}

func TestScan_CallsRecognizerFourTimes(t *testing.T) {
	for _, texts := range [][]string{
		{"", "", "", ""},
		{"long enough text", "", "", ""},
		{"a", "bb", "ccc", "dddd"},
	} {
		rec, seen := scripted(texts...)
		out, err := Scan(context.Background(), testutil.CreateTestImage(8, 4, testutil.White), rec)
		require.NoError(t, err)
		assert.Len(t, *seen, Candidates)
		assert.Equal(t, Candidates, out.Attempts)
	}
}

func TestScan_PicksLongest(t *testing.T) {
	rec, _ := scripted("abc", "abcdefg", "", "abcde")

	out, err := Scan(context.Background(), testutil.CreateTestImage(8, 4, testutil.White), rec)
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "abcdefg", out.Text)
	assert.Equal(t, 90, out.Angle)
	require.NotNil(t, out.Image)
	assert.Equal(t, 4, out.Image.Bounds().Dx())
	assert.Equal(t, 8, out.Image.Bounds().Dy())
}

func TestScan_TieKeepsEarliestAngle(t *testing.T) {
	rec, _ := scripted("", "same", "four", "abcd")

	out, err := Scan(context.Background(), testutil.CreateTestImage(8, 4, testutil.White), rec)
	require.NoError(t, err)
	assert.Equal(t, "same", out.Text)
	assert.Equal(t, 90, out.Angle)
}

func TestScan_CountsRunesNotBytes(t *testing.T) {
	rec, _ := scripted("äöüß", "abcde")

	out, err := Scan(context.Background(), testutil.CreateTestImage(2, 2, testutil.White), rec)
	require.NoError(t, err)
	assert.Equal(t, "abcde", out.Text)
}

func TestScan_AllEmpty(t *testing.T) {
	rec, _ := scripted()

	out, err := Scan(context.Background(), testutil.CreateTestImage(2, 2, testutil.White), rec)
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Empty(t, out.Text)
	assert.Nil(t, out.Image)
}

func TestScan_RecognizerErrorCountsAsEmpty(t *testing.T) {
	calls := 0
	rec := func(_ context.Context, _ image.Image) (string, error) {
		calls++
		if calls == 1 {
			return "ignored", errors.New("engine hiccup")
		}
		if calls == 3 {
			return "upside down", nil
		}
		return "", nil
	}

	out, err := Scan(context.Background(), testutil.CreateTestImage(2, 2, testutil.White), rec)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, "upside down", out.Text)
	assert.Equal(t, 180, out.Angle)
}

func TestScan_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	rec := func(_ context.Context, _ image.Image) (string, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return strings.Repeat("x", calls), nil
	}

	out, err := Scan(ctx, testutil.CreateTestImage(2, 2, testutil.White), rec)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Outcome{}, out)
	assert.Equal(t, 2, calls)
}

func TestScan_NilImage(t *testing.T) {
	rec, seen := scripted("x")
	_, err := Scan(context.Background(), nil, rec)
	require.ErrorIs(t, err, ErrNilImage)
	assert.Empty(t, *seen)
}

func TestScan_CandidatesTurnClockwise(t *testing.T) {
	// Marker at the top-left corner of a 6x3 image.
	src := testutil.MarkedImage(6, 3, 0, 0)
	rec, seen := scripted()

	_, err := Scan(context.Background(), src, rec)
	require.NoError(t, err)
	require.Len(t, *seen, 4)

	black := func(img image.Image, x, y int) bool {
		r, g, b, _ := img.At(x, y).RGBA()
		return r == 0 && g == 0 && b == 0
	}

	assert.Same(t, image.Image(src), (*seen)[0])
	assert.True(t, black((*seen)[1], 2, 0), "90: top-left moves to top-right")
	assert.True(t, black((*seen)[2], 5, 2), "180: top-left moves to bottom-right")
	assert.True(t, black((*seen)[3], 0, 5), "270: top-left moves to bottom-left")
}

func sameImage(a, b image.Image) bool {
	if a.Bounds().Size() != b.Bounds().Size() {
		return false
	}
	ab, bb := a.Bounds(), b.Bounds()
	for y := range ab.Dy() {
		for x := range ab.Dx() {
			r1, g1, b1, _ := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, _ := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 {
				return false
			}
		}
	}
	return true
}

func TestScan_FindsUprightPage(t *testing.T) {
	cfg := testutil.DefaultTextImageConfig()
	cfg.Size = testutil.ImageSize{Width: 120, Height: 40}
	upright := testutil.GenerateTextImage(cfg)

	for turns, want := range map[int]int{0: 0, 1: 270, 2: 180, 3: 90} {
		cfg.QuarterTurns = turns
		photo := testutil.GenerateTextImage(cfg)

		// Only the upright orientation is readable.
		rec := func(_ context.Context, img image.Image) (string, error) {
			if sameImage(img, upright) {
				return "Sample Text", nil
			}
			return "", nil
		}

		out, err := Scan(context.Background(), photo, rec)
		require.NoError(t, err)
		assert.True(t, out.Found, "turns=%d", turns)
		assert.Equal(t, want, out.Angle, "turns=%d", turns)
	}
}
