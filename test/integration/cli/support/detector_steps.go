package support

import (
	"fmt"
	"strconv"

	"github.com/MeKo-Tech/visionscan/internal/vision/visiontest"
	"github.com/cucumber/godog"
)

// theTextRecognizerReads scripts the recognizer per clockwise angle. The
// table has an "angle" and a "text" column; missing angles read nothing.
func (testCtx *TestContext) theTextRecognizerReads(table *godog.Table) error {
	texts := make([]string, 4)
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 2 {
			return fmt.Errorf("row %d: expected angle and text", i)
		}
		angle, err := strconv.Atoi(row.Cells[0].Value)
		if err != nil || angle%90 != 0 || angle < 0 || angle >= 360 {
			return fmt.Errorf("row %d: invalid angle %q", i, row.Cells[0].Value)
		}
		texts[angle/90] = row.Cells[1].Value
	}
	testCtx.Detector = &visiontest.Detector{Texts: texts}
	return nil
}

func (testCtx *TestContext) textRecognitionIsUnavailable() error {
	testCtx.Detector = &visiontest.Detector{Unavailable: true}
	return nil
}

func (testCtx *TestContext) theTextRecognizerShouldHaveRunTimes(n int) error {
	if testCtx.Detector == nil {
		return fmt.Errorf("no scripted recognizer in this scenario")
	}
	if got := testCtx.Detector.TextCalls(); got != n {
		return fmt.Errorf("recognizer ran %d times, expected %d", got, n)
	}
	return nil
}
