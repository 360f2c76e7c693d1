package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zero-day-ai/threatscore/config"
)

const attackBundle = `{
  "type": "bundle",
  "id": "bundle--1",
  "objects": [
    {"type": "intrusion-set", "id": "intrusion-set--apt28", "name": "APT28", "aliases": ["APT28", "Fancy Bear"],
     "external_references": [{"source_name": "mitre-attack", "external_id": "G0007"}]},
    {"type": "intrusion-set", "id": "intrusion-set--noid", "name": "Nameless"},
    {"type": "intrusion-set", "id": "intrusion-set--old", "name": "Retired", "revoked": true,
     "external_references": [{"source_name": "mitre-attack", "external_id": "G9999"}]},
    {"type": "attack-pattern", "id": "attack-pattern--t1548", "name": "Abuse Elevation Control Mechanism",
     "kill_chain_phases": [{"kill_chain_name": "mitre-attack", "phase_name": "privilege-escalation"},
                           {"kill_chain_name": "mitre-attack", "phase_name": "defense-evasion"}],
     "external_references": [{"source_name": "mitre-attack", "external_id": "T1548"}]},
    {"type": "attack-pattern", "id": "attack-pattern--t1548-002", "name": "Bypass User Account Control",
     "x_mitre_is_subtechnique": true,
     "external_references": [{"source_name": "mitre-attack", "external_id": "T1548.002"}]},
    {"type": "attack-pattern", "id": "attack-pattern--t1059", "name": "Command and Scripting Interpreter",
     "external_references": [{"source_name": "mitre-attack", "external_id": "T1059"}]},
    {"type": "attack-pattern", "id": "attack-pattern--t1566", "name": "Phishing",
     "external_references": [{"source_name": "mitre-attack", "external_id": "T1566"}]},
    {"type": "course-of-action", "id": "course-of-action--m1038", "name": "Execution Prevention"},
    {"type": "relationship", "id": "relationship--1", "relationship_type": "uses",
     "source_ref": "intrusion-set--apt28", "target_ref": "attack-pattern--t1548"},
    {"type": "relationship", "id": "relationship--2", "relationship_type": "uses",
     "source_ref": "intrusion-set--apt28", "target_ref": "attack-pattern--t1548-002"},
    {"type": "relationship", "id": "relationship--3", "relationship_type": "uses",
     "source_ref": "intrusion-set--apt28", "target_ref": "attack-pattern--t1548"},
    {"type": "relationship", "id": "relationship--4", "relationship_type": "uses",
     "source_ref": "intrusion-set--apt28", "target_ref": "attack-pattern--t1059"},
    {"type": "relationship", "id": "relationship--5", "relationship_type": "uses",
     "source_ref": "intrusion-set--noid", "target_ref": "attack-pattern--t1566"},
    {"type": "relationship", "id": "relationship--6", "relationship_type": "mitigates",
     "source_ref": "course-of-action--m1038", "target_ref": "attack-pattern--t1059"}
  ]
}`

const aliasesCSV = `name,aliases,first_seen,last_seen
Sofacy,APT28;Fancy Bear,2004-01-01,2023-06-01
`

const controlsCSV = `capability_id,capability_group,mapping_type,attack_object_id,attack_object_name
ac-2,ac,mitigates,T1548,Abuse Elevation Control Mechanism
ac-3,ac,mitigates,T1548.002,Bypass User Account Control
si-4,si,non_mappable,T1548,Abuse Elevation Control Mechanism
cm-6,cm,mitigates,T1059,Command and Scripting Interpreter
`

const cveMappingCSV = `capability_id,capability_group,mapping_type,attack_object_id,attack_object_name
CVE-2021-0001,2021 CVEs,exploitation_technique,T1548,Abuse Elevation Control Mechanism
CVE-2020-0002,2020 CVEs,primary_impact,T1548.002,Bypass User Account Control
CVE-2019-0003,2019 CVEs,non_mappable,T1059,Command and Scripting Interpreter
CVE-2018-0004,2018 CVEs,uncategorized,T1059,Command and Scripting Interpreter
`

const weaknessesCSV = `CWE-ID,Name,Potential Mitigations
79,Cross-site Scripting,Use output encoding
269,Improper Privilege Management,
`

const verisMappingCSV = `capability_id,capability_group,mapping_type,attack_object_id,attack_object_name
action.hacking.variety.Abuse of functionality,action.hacking,related-to,T1548,Abuse Elevation Control Mechanism
action.malware.vector.Email attachment,action.malware,related-to,T1548,Abuse Elevation Control Mechanism
attribute.integrity.variety.Software installation,attribute.integrity,related-to,T1548,Abuse Elevation Control Mechanism
action.hacking.variety.Unknown thing,action.hacking,non_mappable,T1059,Command and Scripting Interpreter
`

const verisImpactCSV = `attack_type,severity
abuse of functionality,6.0
email attachment,8.0
`

const complexityCSV = `ID,name,tactics,sub-technique of,complexity score
T1548,Abuse Elevation Control Mechanism,privilege-escalation,,0.6
T1059,Command and Scripting Interpreter,execution,,0.2
T1566,Phishing,initial-access,,nan
`

const incidentsCSV = `actor,event_date,industry,country,motive,description
APT28,2021-03-04,Public Administration,Germany,Espionage,Bundestag
APT28,2022-05-06,Information,France,Espionage,Broadcaster
Lazarus,2020-01-02,Finance and Insurance,South Korea,Financial,Bank
`

// writeFixtures writes a complete set of dataset sources into a temporary directory.
func writeFixtures(t *testing.T) config.Datasets {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	return config.Datasets{
		Attack:       write("enterprise-attack.json", attackBundle),
		Aliases:      write("threat_actor_groups_aliases.csv", aliasesCSV),
		Controls:     write("nist_800_53_mapping.csv", controlsCSV),
		CVEMapping:   write("cve_mapping.csv", cveMappingCSV),
		CVEDetails:   writeWorkbook(t, filepath.Join(dir, "cve_to_cwe.xlsx")),
		Weaknesses:   write("cwe.csv", weaknessesCSV),
		VERISMapping: write("veris_mapping.csv", verisMappingCSV),
		VERISImpact:  write("veris_impact.csv", verisImpactCSV),
		Complexity:   write("complexity.csv", complexityCSV),
		Incidents:    write("incident_list_processed.csv", incidentsCSV),
	}
}

// writeWorkbook writes the CVE detail workbook.
func writeWorkbook(t *testing.T, path string) string {
	t.Helper()

	rows := [][]any{
		{"CVE-ID", "CVSS-V3", "CVSS-V2", "SEVERITY", "CWE-ID", "DESCRIPTION"},
		{"CVE-2021-0001", "7.5", "6.8", "HIGH", "CWE-269", "privilege escalation"},
		{"CVE-2020-0002", "", "5.0", "MEDIUM", "79", "uac bypass"},
		{"CVE-2018-0004", "nan", "nan", "LOW", "", "unknown"},
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}
