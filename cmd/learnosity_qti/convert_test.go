package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest xmlns="http://www.imsglobal.org/xsd/imscp_v1p1" xmlns:lom="http://ltsc.ieee.org/xsd/LOM" identifier="MAN">
  <resources>
    <resource identifier="RES-1" type="imsqti_item_xmlv2p1" href="item.xml"><file href="item.xml"/></resource>
  </resources>
</manifest>`

const testItem = `<?xml version="1.0" encoding="UTF-8"?>
<assessmentItem xmlns="http://www.imsglobal.org/xsd/imsqti_v2p1" identifier="Q1" title="Capitals" adaptive="false" timeDependent="false">
  <responseDeclaration identifier="RESPONSE" cardinality="single" baseType="identifier">
    <correctResponse><value>B</value></correctResponse>
  </responseDeclaration>
  <itemBody>
    <choiceInteraction responseIdentifier="RESPONSE" maxChoices="1">
      <prompt>Capital of France?</prompt>
      <simpleChoice identifier="A">Lyon</simpleChoice>
      <simpleChoice identifier="B">Paris</simpleChoice>
    </choiceInteraction>
  </itemBody>
  <responseProcessing template="http://www.imsglobal.org/question/qti_v2p1/rptemplates/match_correct"/>
</assessmentItem>`

func writeFixture(t *testing.T) string {
	t.Helper()
	input := t.TempDir()
	dir := filepath.Join(input, "pkg")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "imsmanifest.xml"), []byte(testManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "item.xml"), []byte(testItem), 0o644))
	return input
}

func TestConvertCommand_Success(t *testing.T) {
	input := writeFixture(t)
	output := t.TempDir()

	out, err := executeCommand(t, "convert-to-learnosity",
		"--input", input, "--output", output,
		"--organisation_id", "505", "--item-reference-source", "item")
	require.NoError(t, err, out)

	assert.Contains(t, out, "CONVERSION SUMMARY")
	assert.Contains(t, out, "Done! Converted 1 manifests.")
	assert.FileExists(t, filepath.Join(output, "raw", "pkg.json"))
	assert.FileExists(t, filepath.Join(output, "final", "pkg.json"))
	assert.FileExists(t, filepath.Join(output, "log", "convert-to-learnosity.log.json"))
}

func TestConvertCommand_Alias(t *testing.T) {
	input := writeFixture(t)
	output := t.TempDir()

	out, err := executeCommand(t, "convert:to:learnosity",
		"-i", input, "-o", output, "--organisation_id", "1", "--dry-run")
	require.NoError(t, err, out)

	assert.Contains(t, out, "Dry run complete")
	assert.NoDirExists(t, filepath.Join(output, "raw"))
}

func TestConvertCommand_ValidationError(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out")

	out, err := executeCommand(t, "convert-to-learnosity",
		"--input", filepath.Join(t.TempDir(), "missing"), "--output", output,
		"--item-reference-source", "guid")
	require.Error(t, err)

	assert.Contains(t, out, "Validation error")
	assert.Contains(t, out, "organisation_id")
	assert.Contains(t, out, "item_reference_source")
	assert.Contains(t, out, "does not exist")
	assert.NoDirExists(t, output)
}

func TestConvertCommand_NoManifest(t *testing.T) {
	input := t.TempDir()
	output := filepath.Join(t.TempDir(), "out")

	out, err := executeCommand(t, "convert-to-learnosity",
		"--input", input, "--output", output, "--organisation_id", "1")
	require.Error(t, err)

	assert.Contains(t, out, "Validation error")
	assert.Contains(t, out, "No imsmanifest.xml found")
	assert.NoDirExists(t, output)
}

func TestLoadConvertConfig_Precedence(t *testing.T) {
	t.Setenv("LEARNOSITY_QTI_ORGANISATION_ID", "3")
	t.Setenv("LEARNOSITY_QTI_WORKERS", "2")
	t.Setenv("LEARNOSITY_QTI_ASSETS_BASE_URL", "https://env.example.com")

	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"organisation_id": 9, "item_reference_source": "filename"}`), 0o644))

	resetFlags(convertCommand)
	require.NoError(t, convertCommand.ParseFlags([]string{"--config", configPath, "--workers", "8"}))

	cfg, err := loadConvertConfig(convertCommand)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.OrganisationID, "config file beats environment")
	assert.Equal(t, "filename", cfg.ItemReferenceSource)
	assert.Equal(t, 8, cfg.Workers, "flags beat everything")
	assert.Equal(t, "https://env.example.com", cfg.AssetsBaseURL, "environment beats defaults")
	assert.Equal(t, "./data/input", cfg.Input)
}

func TestLoadConvertConfig_BadConfigFile(t *testing.T) {
	resetFlags(convertCommand)
	require.NoError(t, convertCommand.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "nope.json")}))

	_, err := loadConvertConfig(convertCommand)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestConvertCommand_Binary(t *testing.T) {
	binaryPath := getBinaryPath(t)

	input := writeFixture(t)
	output := t.TempDir()

	cmd := exec.Command(binaryPath, "convert-to-learnosity",
		"--input", input, "--output", output, "--organisation_id", strconv.Itoa(12))
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	assert.FileExists(t, filepath.Join(output, "raw", "pkg.json"))

	cmd = exec.Command(binaryPath, "convert-to-learnosity", "--input", input, "--output", output)
	out, err = cmd.CombinedOutput()
	assert.Error(t, err)
	assert.Contains(t, string(out), "Validation error")
	if exitError, ok := err.(*exec.ExitError); ok {
		assert.Equal(t, 1, exitError.ExitCode(), "should exit with code 1 on validation failure")
	}
}
