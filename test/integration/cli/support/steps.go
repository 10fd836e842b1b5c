package support

import "github.com/cucumber/godog"

// RegisterSteps binds all step definitions. ctx returns the context of the
// running scenario.
func RegisterSteps(sc *godog.ScenarioContext, ctx func() *TestContext) {
	// Commands
	sc.Step(`^I run "([^"]*)"$`, func(c string) error { return ctx().iRunCommand(c) })
	sc.Step(`^the command should succeed$`, func() error { return ctx().theCommandShouldSucceed() })
	sc.Step(`^the command should fail$`, func() error { return ctx().theCommandShouldFail() })
	sc.Step(`^the output should contain "([^"]*)"$`, func(s string) error { return ctx().theOutputShouldContain(s) })
	sc.Step(`^the output should be:$`, func(d *godog.DocString) error { return ctx().theOutputShouldBe(d) })
	sc.Step(`^the output should be empty$`, func() error { return ctx().theOutputShouldBeEmpty() })
	sc.Step(`^the error output should contain "([^"]*)"$`, func(s string) error { return ctx().theErrorOutputShouldContain(s) })
	sc.Step(`^the error should mention "([^"]*)"$`, func(s string) error { return ctx().theErrorShouldMention(s) })
	sc.Step(`^the output should be valid JSON$`, func() error { return ctx().theOutputShouldBeValidJSON() })
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, func(p, v string) error { return ctx().theJSONFieldShouldBe(p, v) })
	sc.Step(`^the output should be valid CSV with (\d+) rows?$`, func(n int) error { return ctx().theOutputShouldBeValidCSVWithRows(n) })

	// Files and environment
	sc.Step(`^the file "([^"]*)" should exist$`, func(n string) error { return ctx().theFileShouldExist(n) })
	sc.Step(`^the file "([^"]*)" should not exist$`, func(n string) error { return ctx().theFileShouldNotExist(n) })
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, func(n, s string) error { return ctx().theFileShouldContain(n, s) })
	sc.Step(`^a config file "([^"]*)" with:$`, func(n string, d *godog.DocString) error { return ctx().aConfigFileWith(n, d) })
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, func(n, v string) error {
		return ctx().theEnvironmentVariableIsSetTo(n, v)
	})

	// Images
	sc.Step(`^a QR code image "([^"]*)" encoding "([^"]*)"$`, func(n, t string) error { return ctx().aQRCodeImageEncoding(n, t) })
	sc.Step(`^an EAN-13 barcode image "([^"]*)" encoding "([^"]*)"$`, func(n, d string) error { return ctx().anEAN13ImageEncoding(n, d) })
	sc.Step(`^a blank photo "([^"]*)" of (\d+)x(\d+) pixels$`, func(n string, w, h int) error { return ctx().aBlankPhotoOfSize(n, w, h) })
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, func(n, c string) error { return ctx().aFileContaining(n, c) })

	// Detector
	sc.Step(`^the text recognizer reads:$`, func(t *godog.Table) error { return ctx().theTextRecognizerReads(t) })
	sc.Step(`^text recognition is unavailable$`, func() error { return ctx().textRecognitionIsUnavailable() })
	sc.Step(`^the text recognizer should have run (\d+) times$`, func(n int) error { return ctx().theTextRecognizerShouldHaveRunTimes(n) })

	// Server
	sc.Step(`^the scan server is running$`, func() error { return ctx().theScanServerIsRunning() })
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, func(n, e string) error { return ctx().iUploadTo(n, e) })
	sc.Step(`^I request "([^"]*)"$`, func(e string) error { return ctx().iRequest(e) })
	sc.Step(`^the response status should be (\d+)$`, func(c int) error { return ctx().theResponseStatusShouldBe(c) })
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, func(p, v string) error { return ctx().theResponseFieldShouldBe(p, v) })
	sc.Step(`^the upload directory should be empty$`, func() error { return ctx().theUploadDirectoryShouldBeEmpty() })
}
