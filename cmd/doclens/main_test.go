package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"doclens/internal/config"
	"doclens/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func inputTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "scores.csv"), "name,score\na,10\nb,20\n")
	writeFile(t, filepath.Join(dir, "a.txt"), "short note")
	writeFile(t, filepath.Join(dir, "image.bin"), "\x00\x01")
	writeFile(t, filepath.Join(dir, ".git", "config.csv"), "x\n1\n")
	return dir
}

func TestCollectFiles(t *testing.T) {
	dir := inputTree(t)
	explicit := filepath.Join(dir, "image.bin")

	paths, err := collectFiles([]string{dir, explicit})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b", "scores.csv"),
		explicit,
	}, paths)

	_, err = collectFiles([]string{filepath.Join(dir, "missing.pdf")})
	assert.Error(t, err)
}

func TestRunProcess(t *testing.T) {
	dir := inputTree(t)
	cfgPath := filepath.Join(t.TempDir(), "config.json")

	var out bytes.Buffer
	err := runProcess([]string{"-config", cfgPath, "-pretty", filepath.Join(dir, "b"), filepath.Join(dir, "a.txt")}, &out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "[\n  {"), "pretty output expected")

	var docs []model.ProcessedDocument
	require.NoError(t, json.Unmarshal(out.Bytes(), &docs))
	require.Len(t, docs, 2)

	assert.Equal(t, "scores.csv", docs[0].Name)
	tab, ok := docs[0].Data.(*model.TabularResult)
	require.True(t, ok)
	assert.Equal(t, 2, tab.RowCount)

	assert.Equal(t, "a.txt", docs[1].Name)
	require.NotNil(t, docs[1].Data.Advice())
	assert.Equal(t, model.ReasonTooShort, docs[1].Data.Advice().Reason)
}

func TestRunProcess_NoArgs(t *testing.T) {
	err := runProcess([]string{"-config", filepath.Join(t.TempDir(), "c.json")}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "no input files")
}

func TestRunCache(t *testing.T) {
	dir := inputTree(t)
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	t.Setenv(config.EnvCacheDB, filepath.Join(t.TempDir(), "cache.db"))

	require.NoError(t, runProcess([]string{"-config", cfgPath, filepath.Join(dir, "b")}, &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, runCache([]string{"stats", "-config", cfgPath}, &out))
	assert.Contains(t, out.String(), "csv            1\n")
	assert.Contains(t, out.String(), "total          1\n")

	out.Reset()
	require.NoError(t, runCache([]string{"purge", "-config", cfgPath, "-older-than", "0s"}, &out))
	assert.Equal(t, "purged 1 cached results older than 0s\n", out.String())

	assert.ErrorContains(t, runCache([]string{"vacuum"}, &out), "unknown cache command")
}

func TestRunCache_Disabled(t *testing.T) {
	err := runCache([]string{"stats", "-config", filepath.Join(t.TempDir(), "c.json")}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "result cache is disabled")
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	_, err = newLogger("loud", false)
	assert.Error(t, err)

	l, err = newLogger("error", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel), "debug flag enables debug level")
}

func TestErrorLogTee(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, cfgPath, `{"log":{"level":"info","error_dir":"`+filepath.ToSlash(logDir)+`"}}`)

	rt, err := setup(commonFlags{configPath: cfgPath})
	require.NoError(t, err)
	require.NotNil(t, rt.errLog)
	rt.log.Info("[Batch] not copied")
	rt.log.Error("[Batch] copied", zap.String("file", "bad.pdf"))
	rt.close()

	var out bytes.Buffer
	require.NoError(t, runLogs([]string{"-config", cfgPath}, &out))
	assert.Contains(t, out.String(), `"msg":"[Batch] copied"`)
	assert.NotContains(t, out.String(), "not copied")
}

func TestRunLogs_Disabled(t *testing.T) {
	err := runLogs([]string{"-config", filepath.Join(t.TempDir(), "c.json")}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "error log is disabled")
}
