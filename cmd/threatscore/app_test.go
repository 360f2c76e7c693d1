package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/threatscore"
	"github.com/zero-day-ai/threatscore/extract"
	"github.com/zero-day-ai/threatscore/store"
	"github.com/zero-day-ai/threatscore/types"
)

const testBundle = `{
  "type": "bundle",
  "id": "bundle--cli",
  "objects": [
    {"type": "intrusion-set", "id": "intrusion-set--apt28", "name": "APT28", "aliases": ["Fancy Bear"],
     "external_references": [{"source_name": "mitre-attack", "external_id": "G0007"}]},
    {"type": "intrusion-set", "id": "intrusion-set--lazarus", "name": "Lazarus Group", "aliases": ["Lazarus"],
     "external_references": [{"source_name": "mitre-attack", "external_id": "G0032"}]},
    {"type": "attack-pattern", "id": "attack-pattern--t1548", "name": "Abuse Elevation Control Mechanism",
     "external_references": [{"source_name": "mitre-attack", "external_id": "T1548"}]},
    {"type": "attack-pattern", "id": "attack-pattern--t1548-002", "name": "Bypass User Account Control",
     "x_mitre_is_subtechnique": true,
     "external_references": [{"source_name": "mitre-attack", "external_id": "T1548.002"}]},
    {"type": "attack-pattern", "id": "attack-pattern--t1059", "name": "Command and Scripting Interpreter",
     "external_references": [{"source_name": "mitre-attack", "external_id": "T1059"}]},
    {"type": "relationship", "id": "relationship--1", "relationship_type": "uses",
     "source_ref": "intrusion-set--apt28", "target_ref": "attack-pattern--t1548"},
    {"type": "relationship", "id": "relationship--2", "relationship_type": "uses",
     "source_ref": "intrusion-set--apt28", "target_ref": "attack-pattern--t1548-002"},
    {"type": "relationship", "id": "relationship--3", "relationship_type": "uses",
     "source_ref": "intrusion-set--lazarus", "target_ref": "attack-pattern--t1059"}
  ]
}`

var testFiles = map[string]string{
	"enterprise-attack.json": testBundle,
	"nist_800_53_mapping.csv": `capability_id,capability_group,mapping_type,attack_object_id,attack_object_name
ac-2,ac,mitigates,T1548,Abuse Elevation Control Mechanism
cm-6,cm,mitigates,T1059,Command and Scripting Interpreter
`,
	"cve_mapping.csv": `capability_id,capability_group,mapping_type,attack_object_id,attack_object_name
CVE-2021-0001,2021 CVEs,exploitation_technique,T1548,Abuse Elevation Control Mechanism
CVE-2020-0002,2020 CVEs,primary_impact,T1548.002,Bypass User Account Control
`,
	"cve_to_cwe.csv": `CVE-ID,CVSS-V3,CVSS-V2,SEVERITY,CWE-ID
CVE-2021-0001,7.5,6.8,HIGH,CWE-269
CVE-2020-0002,,5.0,MEDIUM,79
`,
	"cwe.csv": `CWE-ID,Name,Potential Mitigations
79,Cross-site Scripting,Use output encoding
269,Improper Privilege Management,
`,
	"veris_mapping.csv": `capability_id,capability_group,mapping_type,attack_object_id,attack_object_name
action.hacking.variety.Abuse of functionality,action.hacking,related-to,T1548,Abuse Elevation Control Mechanism
`,
	"veris_impact.csv": `attack_type,severity
abuse of functionality,6.0
`,
	"complexity.csv": `ID,name,tactics,sub-technique of,complexity score
T1548,Abuse Elevation Control Mechanism,privilege-escalation,,0.6
T1059,Command and Scripting Interpreter,execution,,0.2
`,
	"incidents.csv": `actor,event_date,industry,country,motive,description
APT28,2021-03-04,Public Administration,Germany,Espionage,Bundestag
Fancy Bear,2022-05-06,Information,France,Espionage,Broadcaster
Lazarus,2020-01-02,Finance and Insurance,South Korea,Financial,Bank
`,
}

const testConfig = `data_dir: data
datasets:
  attack: enterprise-attack.json
  controls: nist_800_53_mapping.csv
  cve_mapping: cve_mapping.csv
  cve_details: cve_to_cwe.csv
  weaknesses: cwe.csv
  veris_mapping: veris_mapping.csv
  veris_impact: veris_impact.csv
  complexity: complexity.csv
  incidents: incidents.csv
logging:
  level: error
`

// writeProject writes a threatscore.yaml and its datasets and returns the
// directory holding the config file.
func writeProject(t *testing.T, omit ...string) string {
	t.Helper()
	return writeProjectWith(t, testConfig, omit...)
}

func writeProjectWith(t *testing.T, cfg string, omit ...string) string {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	for name, content := range testFiles {
		if contains(omit, name) {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "threatscore.yaml"), []byte(cfg), 0644))
	return dir
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// run executes the root command and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "threatscore version "+Version+"\n", out)
}

func TestActorsCommand(t *testing.T) {
	dir := writeProject(t)

	out, err := run(t, "actors", "--config", dir)
	require.NoError(t, err)

	var actors []struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		Aliases    []string `json:"aliases"`
		Techniques int      `json:"techniques"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &actors))
	require.Len(t, actors, 2)

	assert.Equal(t, "G0007", actors[0].ID)
	assert.Equal(t, "APT28", actors[0].Name)
	assert.Equal(t, 2, actors[0].Techniques)
	assert.Equal(t, "G0032", actors[1].ID)
	assert.Equal(t, 1, actors[1].Techniques)
}

func TestActorsCommand_ConfigFromEnvironment(t *testing.T) {
	dir := writeProject(t)
	t.Setenv("THREATSCORE_CONFIG", filepath.Join(dir, "threatscore.yaml"))

	out, err := run(t, "actors")
	require.NoError(t, err)
	assert.Contains(t, out, `"G0032"`)
}

func TestProfileCommand(t *testing.T) {
	dir := writeProject(t)

	out, err := run(t, "profile", "Fancy Bear", "--config", dir, "--actor-type", "nation-state")
	require.NoError(t, err)

	var profile threatscore.ActorProfile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))

	assert.True(t, profile.Known)
	assert.Equal(t, "G0007", profile.Actor.ID)
	assert.Equal(t, []types.TechniqueID{"T1548", "T1548.002"}, profile.Techniques)
	assert.Equal(t, []extract.Count{{Label: "Abuse Elevation Control Mechanism", Count: 1}}, profile.Controls.AttackTypes)
	assert.Equal(t, 2, profile.Incidents.Count)
	assert.Equal(t, types.Defined(1.0), profile.Incidents.Frequency)
	assert.Equal(t, "Nation-State", string(profile.ActorType))
	assert.True(t, profile.Score.Total.IsDefined())
	assert.Empty(t, profile.Score.Missing)
	assert.NotEmpty(t, profile.RunID)
}

func TestProfileCommand_SectorFromEnvironment(t *testing.T) {
	dir := writeProject(t)
	t.Setenv("THREATSCORE_SECTOR", "finance and insurance")

	out, err := run(t, "profile", "G0007", "--config", dir)
	require.NoError(t, err)

	var profile threatscore.ActorProfile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.Equal(t, "Finance and Insurance", string(profile.Sector))
}

func TestProfileCommand_UnknownActor(t *testing.T) {
	dir := writeProject(t)

	_, err := run(t, "profile", "Nobody", "--config", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, threatscore.ErrActorNotFound)
}

func TestScoreCommand(t *testing.T) {
	dir := writeProject(t)

	out, err := run(t, "score", "--ttps", "T1548, T1548.002, T1548", "--config", dir, "--frequency", "0.5")
	require.NoError(t, err)

	var profile threatscore.ActorProfile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))

	assert.False(t, profile.Known)
	assert.Equal(t, []types.TechniqueID{"T1548", "T1548.002"}, profile.Techniques)
	assert.Equal(t, types.Defined(0.5), profile.Incidents.Frequency)
	assert.True(t, profile.Score.Total.IsDefined())
}

func TestFrequencyOutOfRange(t *testing.T) {
	dir := writeProject(t)

	for _, value := range []string{"5", "1.01", "0", "0.001", "-1"} {
		t.Run(value, func(t *testing.T) {
			out, err := run(t, "score", "--ttps", "T1548", "--config", dir, "--frequency", value)
			require.Error(t, err)
			assert.Empty(t, out)
			assert.ErrorIs(t, err, threatscore.ErrInvalidConfig)

			var tsErr *threatscore.Error
			require.ErrorAs(t, err, &tsErr)
			assert.Equal(t, threatscore.KindValidation, tsErr.Kind)
		})
	}

	t.Run("environment", func(t *testing.T) {
		t.Setenv("THREATSCORE_FREQUENCY", "2")
		_, err := run(t, "profile", "G0007", "--config", dir)
		assert.ErrorIs(t, err, threatscore.ErrInvalidConfig)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		for _, value := range []string{"0.01", "1"} {
			_, err := run(t, "score", "--ttps", "T1548", "--config", dir, "--frequency", value)
			assert.NoError(t, err, value)
		}
	})
}

func TestScoreCommand_InvalidTechniques(t *testing.T) {
	tests := []struct {
		name string
		ttps string
	}{
		{name: "malformed", ttps: "T1548, nope"},
		{name: "empty", ttps: " , "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "score", "--ttps", tt.ttps, "--config", t.TempDir())
			require.Error(t, err)

			var tsErr *threatscore.Error
			require.ErrorAs(t, err, &tsErr)
			assert.Equal(t, threatscore.KindValidation, tsErr.Kind)
		})
	}
}

func TestAllCommand(t *testing.T) {
	dir := writeProject(t)

	out, err := run(t, "all", "--config", dir)
	require.NoError(t, err)

	var ranked []ranking
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.Len(t, ranked, 2)

	assert.Equal(t, "G0007", ranked[0].Actor)
	assert.True(t, ranked[0].Total.IsDefined())

	// T1059 has no VERIS classification, so the impact is undefined.
	assert.Equal(t, "G0032", ranked[1].Actor)
	assert.False(t, ranked[1].Total.IsDefined())
	assert.Equal(t, []string{"impact"}, ranked[1].Missing)
}

func TestCheckCommand(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		dir := writeProject(t)

		out, err := run(t, "check", "--config", dir)
		require.NoError(t, err)

		var report healthReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.True(t, report.Overall.IsHealthy(), report.Overall.Message)
		assert.Len(t, report.Datasets, 7)
	})

	t.Run("missing dataset", func(t *testing.T) {
		dir := writeProject(t, "complexity.csv")

		out, err := run(t, "check", "--config", dir)
		require.Error(t, err)
		assert.ErrorIs(t, err, threatscore.ErrDatasetUnavailable)

		var report healthReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.True(t, report.Overall.IsUnhealthy())
		assert.True(t, report.Datasets["complexity"].IsUnhealthy())
	})
}

func TestIncidentsCommand(t *testing.T) {
	dir := writeProject(t)

	out, err := run(t, "incidents", "--config", dir)
	require.NoError(t, err)

	var report incidentReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	require.Len(t, report.Ranking, 2)
	assert.Equal(t, "APT28", report.Ranking[0].Actor, "aliases are counted together")
	assert.Equal(t, 2, report.Ranking[0].Incidents)
	assert.Equal(t, 1.0, report.Ranking[0].Score)
	assert.Equal(t, 1, report.Ranking[1].Incidents)
	assert.InDelta(t, 0.01, report.Ranking[1].Score, 1e-9)

	assert.Len(t, report.Countries, 3)
}

func TestWatchCommand(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := writeProjectWith(t, testConfig+"cache:\n  url: redis://"+mr.Addr()+"\n")

	var stdout bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"watch", "--limit", "1", "--config", dir})

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	publisher, err := store.NewRedisCache(store.RedisOptions{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer publisher.Close()

	event := store.ProfileEvent{RunID: "run-1", Actor: "G0007", Total: types.Defined(42)}
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(5 * time.Second)

	// Publish until the subscriber is attached and has consumed one event.
	for {
		select {
		case err := <-done:
			require.NoError(t, err)

			var got store.ProfileEvent
			require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
			assert.Equal(t, "run-1", got.RunID)
			assert.Equal(t, "G0007", got.Actor)
			assert.Equal(t, types.Defined(42), got.Total)
			return
		case <-ticker.C:
			require.NoError(t, publisher.Publish(context.Background(), event))
		case <-timeout:
			t.Fatal("watch received no event")
		}
	}
}

func TestWatchCommand_NoCache(t *testing.T) {
	dir := writeProject(t)

	_, err := run(t, "watch", "--config", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, threatscore.ErrInvalidConfig)
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, "actors", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, threatscore.ErrInvalidConfig)
}

func TestRankProfiles(t *testing.T) {
	profile := func(id string, total types.Measure) *threatscore.ActorProfile {
		p := &threatscore.ActorProfile{Actor: types.Actor{ID: id}}
		p.Score.Total = total
		return p
	}

	ranked := rankProfiles([]*threatscore.ActorProfile{
		profile("G0003", types.Undefined()),
		profile("G0002", types.Defined(40)),
		profile("G0001", types.Undefined()),
		profile("G0004", types.Defined(75)),
		profile("G0005", types.Defined(40)),
	})

	var order []string
	for _, r := range ranked {
		order = append(order, r.Actor)
	}
	assert.Equal(t, []string{"G0004", "G0002", "G0005", "G0001", "G0003"}, order)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "actor", "G0007")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "G0007", entry["actor"])
	assert.Equal(t, appName, entry["service"])
}
