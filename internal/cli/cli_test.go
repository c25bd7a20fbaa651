package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/config"
	"github.com/rileyhilliard/nekowatch/internal/doctor"
	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
	hosttest "github.com/rileyhilliard/nekowatch/internal/host/testing"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/monitor"
	"github.com/rileyhilliard/nekowatch/internal/store"
	"github.com/rileyhilliard/nekowatch/internal/ui"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
	sshtest "github.com/rileyhilliard/nekowatch/pkg/sshutil/testing"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	ui.DisableColors()
	os.Exit(m.Run())
}

func testCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

func testApp(reg host.Registry) *app {
	cfg := config.DefaultConfig()
	cfg.Listen = "127.0.0.1:0"
	cfg.Timezone = "UTC"
	d := &sshtest.Dialer{}
	return &app{
		cfg:      cfg,
		store:    store.NewMemory(),
		registry: reg,
		pool:     sshutil.NewPool(d.Dial, logger.Noop()),
	}
}

func TestHostRows(t *testing.T) {
	disabled := hosttest.Host("d", "disabled", "10.0.0.4", 10086)
	disabled.Status = host.StatusDisabled
	hidden := hosttest.Host("h", "hidden", "10.0.0.3", 10086)
	hidden.Status = host.StatusHidden
	hosts := []host.Host{
		hosttest.Host("a", "alpha", "10.0.0.1", 10086),
		hosttest.Host("b", "beta", "10.0.0.2", 10086),
		hosttest.Host("c", "gamma", "10.0.0.5", 10086),
		hidden,
		disabled,
	}

	table := monitor.NewStateTable()
	p := monitor.StatPayload{
		CPU: monitor.CPUStat{Multi: 0.42},
		Mem: monitor.MemStat{Virtual: monitor.MemUsage{UsedPercent: 30}, Swap: monitor.MemUsage{UsedPercent: 5}},
		Net: monitor.NetStat{Delta: monitor.InOut{In: 100, Out: 200}},
	}
	table.Put("a", monitor.Snapshot{Name: "alpha", Stat: &p})
	table.Put("b", monitor.Snapshot{Name: "beta"})
	table.Put("h", monitor.Snapshot{Name: "hidden", Stat: &p})

	rows := hostRows(hosts, table, false)
	require.Len(t, rows, 3)
	assert.Equal(t, ui.HostRow{ID: "a", Name: "alpha", State: ui.StateUp, CPU: 42, Mem: 30, Swap: 5, In: 100, Out: 200}, rows[0])
	assert.Equal(t, ui.StateDown, rows[1].State)
	assert.Equal(t, ui.StatePending, rows[2].State)

	rows = hostRows(hosts, table, true)
	require.Len(t, rows, 4)
	assert.Equal(t, "h", rows[3].ID)
	assert.True(t, rows[3].Hidden)
}

func TestLoadSeries(t *testing.T) {
	samples := []store.LoadSample{
		store.NoDataSample(),
		{CPU: 50, Mem: 25},
		{CPU: 0, Mem: 100},
	}
	assert.Equal(t, []float64{-1, 0.5, 0}, loadSeries(samples, cpuOf))
	assert.Equal(t, []float64{-1, 0.25, 1}, loadSeries(samples, memOf))
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	traffic := store.NewTraffic()
	traffic.Hours[len(traffic.Hours)-1] = store.Delta{In: 2048, Out: 1024}

	renderHistory(&buf, store.Pad(nil, store.MinuteRing), store.Pad(nil, store.HourRing), traffic)

	out := buf.String()
	assert.Contains(t, out, "cpu  60m")
	assert.Contains(t, out, "this hour   ↓2.0 KiB ↑1.0 KiB")
	assert.Contains(t, out, "today       ↓0 B ↑0 B")
}

func TestLastDelta(t *testing.T) {
	assert.Zero(t, lastIn(nil))
	assert.Zero(t, lastOut(nil))
	ds := []store.Delta{{In: 1, Out: 2}, {In: 3, Out: 4}}
	assert.Equal(t, uint64(3), lastIn(ds))
	assert.Equal(t, uint64(4), lastOut(ds))
}

func TestResolveHost(t *testing.T) {
	reg := hosttest.NewFakeRegistry(
		hosttest.Host("a1", "Alpha", "10.0.0.1", 10086),
		hosttest.Host("b1", "beta", "10.0.0.2", 10086),
	)
	ctx := context.Background()

	h, err := resolveHost(ctx, reg, "b1")
	require.NoError(t, err)
	assert.Equal(t, "beta", h.Name)

	h, err = resolveHost(ctx, reg, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "a1", h.ID)

	_, err = resolveHost(ctx, reg, "nope")
	assert.True(t, errors.IsCode(err, errors.ErrInput))

	reg.SetError(errors.New(errors.ErrStore, "db down", ""))
	_, err = resolveHost(ctx, reg, "a1")
	assert.True(t, errors.IsCode(err, errors.ErrStore))
}

func TestSSHTarget(t *testing.T) {
	h := hosttest.Host("a", "alpha", "10.0.0.1", 10086)
	assert.Equal(t, "root@10.0.0.1:22", sshTarget(h))

	h.SSH.Port = 0
	h.SSH.Username = ""
	assert.Equal(t, "10.0.0.1", sshTarget(h))

	h.SSH.Host = "fe80::1"
	h.SSH.Port = 2222
	assert.Equal(t, "[fe80::1]:2222", sshTarget(h))
}

func TestListHosts(t *testing.T) {
	hosts := []host.Host{hosttest.Host("a", "alpha", "10.0.0.1", 10086)}

	t.Run("table", func(t *testing.T) {
		cmd, buf := testCommand(t)
		require.NoError(t, listHosts(cmd, hosts))
		out := buf.String()
		assert.Contains(t, out, "alpha")
		assert.Contains(t, out, "http://10.0.0.1:10086/stat")
		assert.NotContains(t, out, "secret")
	})

	t.Run("empty", func(t *testing.T) {
		cmd, buf := testCommand(t)
		require.NoError(t, listHosts(cmd, nil))
		assert.Equal(t, "No hosts registered.\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		old := machineMode
		machineMode = true
		defer func() { machineMode = old }()

		cmd, buf := testCommand(t)
		require.NoError(t, listHosts(cmd, hosts))
		assert.NotContains(t, buf.String(), "secret")

		var env struct {
			Data []hostSummary `json:"data"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
		require.Len(t, env.Data, 1)
		assert.Equal(t, hostSummary{
			ID: "a", Name: "alpha", Status: "active", Top: 0,
			SSH: "root@10.0.0.1:22", AgentURL: "http://10.0.0.1:10086/stat",
		}, env.Data[0])
	})
}

func TestOpenApp_FileRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`hosts:
  - sid: a
    name: alpha
    status: 1
    ssh: {host: 10.0.0.1, port: 22, username: root, password: pw}
    api: {port: 10086, key: k}
`), 0o600))

	cfg := config.DefaultConfig()
	cfg.HostsFile = path
	a, err := openApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	hosts, err := a.registry.List(context.Background())
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "alpha", hosts[0].Name)

	_, err = a.requireDB("history")
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestOpenApp_NoRegistry(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HostsFile = ""
	_, err := openApp(context.Background(), cfg)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestNotifierChain(t *testing.T) {
	a := testApp(hosttest.NewFakeRegistry())
	assert.Len(t, a.notifier(), 1, "log only without a token")

	a.cfg.Notify.Telegram.Token = "t"
	a.cfg.Notify.Telegram.ChatID = "c"
	assert.Len(t, a.notifier(), 2)
}

func TestStatusCommand(t *testing.T) {
	a := testApp(hosttest.NewFakeRegistry())
	svc := monitor.NewService(monitor.Options{Registry: a.registry, Store: a.store})
	cmd, buf := testCommand(t)

	require.NoError(t, statusCommand(cmd, a, svc))
	assert.Contains(t, buf.String(), "0/0 hosts up")
}

func TestServe_StopsOnCancel(t *testing.T) {
	a := testApp(hosttest.NewFakeRegistry())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, a) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_BadTimezone(t *testing.T) {
	a := testApp(hosttest.NewFakeRegistry())
	a.cfg.Timezone = "Mars/Olympus"
	err := serve(context.Background(), a)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Install", capitalize("install"))
	assert.Equal(t, "", capitalize(""))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[strings.Fields(c.Use)[0]] = true
	}
	for _, want := range []string{"serve", "status", "history", "hosts", "install", "update", "exec", "shell", "doctor", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestRunDoctor(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hosts.yaml"), []byte(`hosts:
  - sid: a
    name: alpha
    status: 0
    ssh: {host: 10.0.0.1, port: 22, username: root, password: pw}
    api: {port: 10086, key: k}
`), 0o600))
	cfgPath := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("timezone: UTC\nhosts_file: hosts.yaml\n"), 0o600))

	results := runDoctor(context.Background(), cfgPath, false)
	byName := map[string]doctor.CheckResult{}
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.Equal(t, doctor.StatusPass, byName["config"].Status)
	assert.Equal(t, doctor.StatusPass, byName["timezone"].Status)
	assert.Equal(t, doctor.StatusWarn, byName["agent_download_url"].Status)
	assert.Equal(t, doctor.StatusWarn, byName["store"].Status)
	assert.Equal(t, "1 host registered, none polled", byName["registry"].Message)
	assert.Contains(t, byName["registry"].Suggestion, "Not polled: alpha")
	assert.Contains(t, byName, "ssh_agent")
	assert.NotContains(t, byName, "agent_a")
	assert.False(t, doctor.HasFailures(results))
}

func TestRunDoctor_BadConfig(t *testing.T) {
	results := runDoctor(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.Len(t, results, 1)
	assert.Equal(t, "config", results[0].Name)
	assert.Equal(t, doctor.StatusFail, results[0].Status)
}

func TestRenderDoctor(t *testing.T) {
	results := []doctor.CheckResult{
		{Name: "store", Category: doctor.CategoryStore, Status: doctor.StatusFail, Message: "Database unreachable", Suggestion: "Check database.dsn"},
		{Name: "config", Category: doctor.CategoryConfig, Status: doctor.StatusPass, Message: "Config file: nekowatch.yaml", Suggestion: "hidden"},
	}

	var buf bytes.Buffer
	require.NoError(t, renderDoctor(&buf, results))
	out := buf.String()
	assert.Less(t, strings.Index(out, "CONFIG"), strings.Index(out, "STORE"))
	assert.Contains(t, out, "✗ Database unreachable")
	assert.Contains(t, out, "    Check database.dsn")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "1 issue found")

	t.Run("json", func(t *testing.T) {
		old := machineMode
		machineMode = true
		defer func() { machineMode = old }()

		buf.Reset()
		require.NoError(t, renderDoctor(&buf, results))

		var env struct {
			Success bool         `json:"success"`
			Data    DoctorOutput `json:"data"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
		assert.True(t, env.Success)
		require.Len(t, env.Data.Categories, 2)
		assert.Equal(t, "CONFIG", env.Data.Categories[0].Name)
		assert.Equal(t, SummaryOutput{Pass: 1, Fail: 1}, env.Data.Summary)
	})
}
