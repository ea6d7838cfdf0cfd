package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/stakerank/stakerank/internal/config"
	"github.com/stakerank/stakerank/internal/report"
	"github.com/stakerank/stakerank/internal/types"
)

func sampleReport() *report.Report {
	huge, _ := math.NewIntFromString("340282366920938463463374607431768211455")
	rep := report.Rank(report.Aggregates{
		Active: map[types.Account]*report.ValidatorAggregate{
			"V1": {Name: "Alice", Nominators: 2, TotalBondedBalance: math.NewInt(300)},
			"V2": {Name: "Bob/node", Nominators: 1, TotalBondedBalance: huge},
		},
		Waiting: map[types.Account]*report.ValidatorAggregate{
			"W1": {Name: "W1", Nominators: 1, TotalBondedBalance: math.NewInt(10)},
		},
	})
	rep.GeneratedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rep.Stats = report.Stats{Validators: 3, Nominators: 3}
	return &rep
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveSections(t *testing.T) {
	all, err := resolveSections("all")
	require.NoError(t, err)
	assert.Equal(t, []string{report.SectionActive, report.SectionWaiting}, all)

	one, err := resolveSections("waiting")
	require.NoError(t, err)
	assert.Equal(t, []string{report.SectionWaiting}, one)

	_, err = resolveSections("inactive")
	assert.Error(t, err)
}

func TestPrintReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport(), OutputFormatJSON, []string{report.SectionActive, report.SectionWaiting}, 0, false))

	out := buf.String()
	assert.Less(t, strings.Index(out, `"V2"`), strings.Index(out, `"V1"`))
	assert.Contains(t, out, `"totalBondedBalance": "340282366920938463463374607431768211455"`)

	var decoded struct {
		Active  report.Section `json:"active"`
		Waiting report.Section `json:"waiting"`
		Stats   report.Stats   `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Active, 2)
	assert.Equal(t, types.Account("V2"), decoded.Active[0].Validator)
	assert.Equal(t, "Alice", decoded.Active[1].Name)
	assert.Equal(t, 3, decoded.Stats.Nominators)
}

func TestPrintReport_JSONSingleSectionWithLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport(), OutputFormatJSON, []string{report.SectionActive}, 1, false))

	out := buf.String()
	assert.Contains(t, out, `"V2"`)
	assert.NotContains(t, out, `"V1"`)
	assert.NotContains(t, out, `"waiting"`)
}

func TestPrintReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport(), OutputFormatYAML, []string{report.SectionActive, report.SectionWaiting}, 0, false))

	out := buf.String()
	assert.Less(t, strings.Index(out, "V2:"), strings.Index(out, "V1:"))
	assert.Less(t, strings.Index(out, "active:"), strings.Index(out, "waiting:"))
	assert.Contains(t, out, `totalBondedBalance: "340282366920938463463374607431768211455"`)

	var decoded yaml.MapSlice
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.GreaterOrEqual(t, len(decoded), 2)
	assert.Equal(t, "active", decoded[0].Key)
	active, ok := decoded[0].Value.(yaml.MapSlice)
	require.True(t, ok)
	assert.Equal(t, "V2", active[0].Key)
	assert.Equal(t, "V1", active[1].Key)
}

func TestPrintReport_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport(), OutputFormatText, []string{report.SectionWaiting}, 0, false))

	assert.Contains(t, buf.String(), "WAITING")
	assert.Contains(t, buf.String(), "W1")
	assert.NotContains(t, buf.String(), "Alice")
}

func TestPrintIdentities(t *testing.T) {
	names := []report.NamedValidator{
		{Validator: "V1", Name: "Alice", Resolved: true},
		{Validator: "V3", Name: "V3"},
	}

	var buf bytes.Buffer
	require.NoError(t, printIdentities(&buf, names, OutputFormatJSON, false))
	var decoded []report.NamedValidator
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, names, decoded)

	buf.Reset()
	require.NoError(t, printIdentities(&buf, names, OutputFormatYAML, false))
	assert.Contains(t, buf.String(), "name: Alice")
	assert.Contains(t, buf.String(), "resolved: false")
}

func TestReportCmd_RejectsBadFlags(t *testing.T) {
	home := t.TempDir()

	_, err := execute(t, "report", "--home", home, "--output", "xml")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = execute(t, "report", "--home", home, "--section", "inactive")
	assert.ErrorContains(t, err, "unknown section")

	_, err = execute(t, "report", "--home", home, "--limit=-1")
	assert.ErrorContains(t, err, "limit")
}

func TestConfigInit(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, "config", "init", "--home", home, "--node", "ws://127.0.0.1:9944")
	require.NoError(t, err)
	assert.Contains(t, out, config.Path(home))

	_, err = os.Stat(config.Path(home))
	require.NoError(t, err)

	cfg, err := config.Load(home)
	require.NoError(t, err)
	assert.Equal(t, []string{"ws://127.0.0.1:9944"}, cfg.NodeURLs)

	_, err = execute(t, "config", "init", "--home", home)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", "--home", home, "--force")
	assert.NoError(t, err)
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	flags := &rootFlags{
		home:      t.TempDir(),
		nodes:     []string{"ws://a:9944", "ws://b:9944"},
		logLevel:  "debug",
		logFormat: "json",
	}

	cfg, err := flags.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, flags.nodes, cfg.NodeURLs)
	assert.Equal(t, 0, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	flags.nodes = []string{"https://not-a-websocket"}
	_, err = flags.loadConfig()
	assert.Error(t, err)

	flags.nodes = nil
	flags.logLevel = "loud"
	_, err = flags.loadConfig()
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stakerank")
	assert.Contains(t, out, Version)
}
