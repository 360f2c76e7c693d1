package dataset

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/threatscore/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoader_Groups(t *testing.T) {
	loader := NewLoader(writeFixtures(t), WithLogger(quietLogger()))
	snap := loader.Snapshot()

	actors := snap.Actors()
	require.Len(t, actors, 1, "groups without an ATT&CK id and revoked groups are dropped")

	apt28 := actors[0]
	assert.Equal(t, "G0007", apt28.ID)
	assert.Equal(t, "Sofacy", apt28.Name, "display name comes from the alias table")
	assert.Contains(t, apt28.Aliases, "APT28")
	assert.Contains(t, apt28.Aliases, "Fancy Bear")
	assert.Equal(t, 2004, apt28.FirstSeen.Year())
	assert.Equal(t, 2023, apt28.LastSeen.Year())

	tech, ok := snap.Technique("T1548.002")
	require.True(t, ok)
	assert.Equal(t, types.TechniqueID("T1548"), tech.Parent)

	tech, ok = snap.Technique("T1548")
	require.True(t, ok)
	assert.Equal(t, []string{"privilege-escalation", "defense-evasion"}, tech.Tactics)

	assert.Equal(t, []types.TechniqueID{"T1548", "T1548.002", "T1566"}, snap.Unmitigated())
	assert.False(t, snap.IsUnmitigated("T1059"))
}

func TestSnapshot_Resolve(t *testing.T) {
	loader := NewLoader(writeFixtures(t), WithLogger(quietLogger()))
	snap := loader.Snapshot()

	want := []types.TechniqueID{"T1548", "T1548.002", "T1059"}

	tests := []struct {
		name string
		key  string
		want []types.TechniqueID
	}{
		{name: "attack id", key: "G0007", want: want},
		{name: "lower-case id", key: "g0007", want: want},
		{name: "display name", key: "sofacy", want: want},
		{name: "alias", key: "Fancy Bear", want: want},
		{name: "unknown actor", key: "APT99", want: []types.TechniqueID{}},
		{name: "unresolvable group", key: "Nameless", want: []types.TechniqueID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snap.Resolve(tt.key)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("result is a copy", func(t *testing.T) {
		got := snap.Resolve("G0007")
		got[0] = "T9999"
		assert.Equal(t, want, snap.Resolve("G0007"))
	})
}

func TestLoader_Controls(t *testing.T) {
	loader := NewLoader(writeFixtures(t), WithLogger(quietLogger()))
	controls := loader.EnsureControls()

	require.Len(t, controls, 3, "non_mappable rows are dropped")
	assert.Equal(t, "AC-2", controls[0].CapabilityID)
	assert.Equal(t, "AC", controls[0].CapabilityGroup)
	assert.Equal(t, "Abuse Elevation Control Mechanism", controls[0].TechniqueName)
	for _, c := range controls {
		assert.NotEqual(t, "SI-4", c.CapabilityID)
	}
}

func TestLoader_Vulnerabilities(t *testing.T) {
	loader := NewLoader(writeFixtures(t), WithLogger(quietLogger()))
	vulns := loader.EnsureVulnerabilities()

	require.Len(t, vulns, 3)
	byCVE := make(map[string]Vulnerability)
	for _, v := range vulns {
		byCVE[v.CVE] = v
	}

	v := byCVE["CVE-2021-0001"]
	assert.Equal(t, 2021, v.Year)
	assert.Equal(t, "high", v.Severity)
	assert.Equal(t, []string{"CWE-269"}, v.CWEs)
	assert.Equal(t, "exploitation_technique", v.MappingType)
	score, ok := v.CVSS.Value()
	require.True(t, ok)
	assert.Equal(t, 7.5, score, "v3 score wins")

	v = byCVE["CVE-2020-0002"]
	score, ok = v.CVSS.Value()
	require.True(t, ok)
	assert.Equal(t, 5.0, score, "v2 score is the fallback")
	assert.Equal(t, []string{"CWE-79"}, v.CWEs)

	v = byCVE["CVE-2018-0004"]
	assert.False(t, v.CVSS.IsDefined())

	assert.NotContains(t, byCVE, "CVE-2019-0003")
	assert.True(t, loader.Health()[DatasetVulnerabilities].IsHealthy())
}

func TestLoader_VulnerabilitiesWithoutDetails(t *testing.T) {
	sources := writeFixtures(t)
	sources.CVEDetails = filepath.Join(t.TempDir(), "missing.xlsx")

	loader := NewLoader(sources, WithLogger(quietLogger()))
	vulns := loader.EnsureVulnerabilities()

	require.Len(t, vulns, 3)
	for _, v := range vulns {
		assert.False(t, v.CVSS.IsDefined())
		assert.NotZero(t, v.Year)
	}
	assert.True(t, loader.Health()[DatasetVulnerabilities].IsDegraded())
}

func TestLoader_Impact(t *testing.T) {
	loader := NewLoader(writeFixtures(t), WithLogger(quietLogger()))
	impact := loader.EnsureImpact()

	require.Len(t, impact, 3)

	assert.Equal(t, PartitionAction, impact[0].Partition)
	assert.Equal(t, "hacking", impact[0].CapabilityGroup)
	assert.Equal(t, "abuse of functionality", impact[0].AttackType)
	sev, ok := impact[0].Severity.Value()
	require.True(t, ok)
	assert.Equal(t, 6.0, sev)

	assert.Equal(t, "email attachment", impact[1].AttackType)

	assert.Equal(t, PartitionAttribute, impact[2].Partition)
	assert.Equal(t, "integrity", impact[2].CapabilityGroup)
	assert.Empty(t, impact[2].AttackType)
	assert.False(t, impact[2].Severity.IsDefined())
}

func TestLoader_ComplexityWeaknessesIncidents(t *testing.T) {
	loader := NewLoader(writeFixtures(t), WithLogger(quietLogger()))

	complexity := loader.EnsureComplexity()
	require.Len(t, complexity, 2, "rows without a score are dropped")
	assert.Equal(t, 0.6, complexity[0].Score)

	weaknesses := loader.EnsureWeaknesses()
	require.Len(t, weaknesses, 2)
	assert.Equal(t, "CWE-79", weaknesses[0].ID)
	assert.True(t, weaknesses[0].HasMitigation)
	assert.False(t, weaknesses[1].HasMitigation)

	incidents := loader.EnsureIncidents()
	require.Len(t, incidents, 3)
	assert.Equal(t, "Germany", incidents[0].Country)
	assert.Equal(t, 2021, incidents[0].EventDate.Year())

	w, ok := loader.Snapshot().Weakness("269")
	require.True(t, ok)
	assert.Equal(t, "Improper Privilege Management", w.Name)
}

func TestLoader_Idempotent(t *testing.T) {
	loader := NewLoader(writeFixtures(t), WithLogger(quietLogger()))

	first, err := json.Marshal(loader.EnsureVulnerabilities())
	require.NoError(t, err)
	second, err := json.Marshal(loader.EnsureVulnerabilities())
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))

	assert.Same(t, loader.Snapshot(), loader.Snapshot())
}

func TestLoader_ConcurrentFirstUse(t *testing.T) {
	loader := NewLoader(writeFixtures(t), WithLogger(quietLogger()))

	const workers = 8
	snaps := make([]*Snapshot, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snaps[i] = loader.Snapshot()
		}()
	}
	wg.Wait()

	for _, s := range snaps[1:] {
		assert.Same(t, snaps[0], s)
	}
}

func TestLoader_MissingSources(t *testing.T) {
	sources := writeFixtures(t)
	sources.Controls = filepath.Join(t.TempDir(), "missing.csv")
	sources.Incidents = ""

	loader := NewLoader(sources, WithLogger(quietLogger()))

	assert.Empty(t, loader.EnsureControls())
	assert.NotNil(t, loader.EnsureControls())
	assert.Empty(t, loader.EnsureIncidents())

	health := loader.Health()
	assert.True(t, health[DatasetControls].IsUnhealthy())
	assert.True(t, health[DatasetIncidents].IsUnhealthy())

	assert.True(t, loader.Check().IsUnhealthy())
	assert.NotEmpty(t, loader.Snapshot().Actors(), "other datasets still load")
}

func TestLoader_MalformedSource(t *testing.T) {
	sources := writeFixtures(t)
	bad := filepath.Join(t.TempDir(), "attack.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"type": "report"}`), 0644))
	sources.Attack = bad

	loader := NewLoader(sources, WithLogger(quietLogger()))
	table := loader.EnsureGroups()

	assert.Empty(t, table.Actors)
	assert.NotNil(t, table.Uses)
	assert.True(t, loader.Health()[DatasetAttack].IsUnhealthy())
	assert.Equal(t, []types.TechniqueID{}, loader.Snapshot().Resolve("APT28"))
}

func TestLoader_AllHealthy(t *testing.T) {
	loader := NewLoader(writeFixtures(t), WithLogger(quietLogger()))
	status := loader.Check()
	assert.True(t, status.IsHealthy(), status.Message)
	assert.Len(t, loader.Health(), len(AllDatasets()))
}
