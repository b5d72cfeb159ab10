package app

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fermload/internal"

	"github.com/stretchr/testify/require"
)

const plateJSON = `{
  "Name": "P1",
  "Comment": "screening",
  "UserName": "lab",
  "Channels": [{"Name": "Biomass"}, {"Name": "pH"}],
  "Microplate": {
    "CultivationLabels": ["A1", "A2", "A3"],
    "ReservoirLabels": ["F8"]
  },
  "Layout": {
    "CultivationLabelDescriptionsMap": {"A1": "strain X", "A2": "strain Y"},
    "ReservoirLabelDescriptionsMap": {"F8": "base"}
  }
}`

const plateRaw = `Well;Filterset;Time;Cal
A01;Biomass;0;1
A01;Biomass;3600;2
A01;pH;0;7
A01;pH;3600;7,1
A02;Biomass;0;3
A02;Biomass;3600;4
A02;pH;0;6,9
A02;pH;3600;6,8
B01;Biomass;0;5
B01;Biomass;3600;6
F08;Biomass;0;9
F08;Biomass;3600;9
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writePlate lays out one plate directory and returns its input
func writePlate(t *testing.T, dir, name string) PlateInput {
	t.Helper()
	plateDir := filepath.Join(dir, name)
	json := strings.Replace(plateJSON, `"P1"`, `"`+name+`"`, 1)
	writeFile(t, filepath.Join(plateDir, "protocol_BXT.json"), json)
	raw := writeFile(t, filepath.Join(plateDir, "raw.csv"), plateRaw)
	return PlateInput{MetadataDir: plateDir, RawData: raw}
}

type tabularFixture struct {
	Info, RawData, Medium, FollowUp string
}

func writeTabular(t *testing.T) tabularFixture {
	t.Helper()
	dir := t.TempDir()
	fx := tabularFixture{
		Info: writeFile(t, filepath.Join(dir, "info.csv"),
			"ESSAI;FERMENTEUR;MILIEU\nE1;F1;M1\nE1;F2;M2\nE2;F1;M1\n"),
		RawData: writeFile(t, filepath.Join(dir, "raw.csv"),
			"ESSAI;FERMENTEUR;Temps (h);OD (AU)\nE1;F1;1;2\nE1;F1;0;1,5\nE1;F3;0;3\n"),
		Medium: writeFile(t, filepath.Join(dir, "medium.csv"),
			"MILIEU;Glucose (g/L);Yeast\nM1;20;x\n"),
		FollowUp: filepath.Join(dir, "followup.zip"),
	}

	f, err := os.Create(fx.FollowUp)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	entries := map[string]string{
		"E1/F1.csv":          "Temps (h);pH\n0;7\n2;6,5\n",
		"E2.csv":             "Date;pH\n2024-01-01 00:00:00;7\n2024-01-01 06:00:00;6\n",
		"__MACOSX/._E2.csv":  "junk",
		"E1/notes.txt":       "ignored",
	}
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return fx
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	base := []ServiceOption{WithLogger(internal.NewNopLogger())}
	return NewService(append(base, opts...)...)
}
