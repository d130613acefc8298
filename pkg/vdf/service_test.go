// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package vdf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/keyvalues/internal/config"
	"github.com/petar-djukic/keyvalues/internal/index"
	"github.com/petar-djukic/keyvalues/internal/parser"
	"github.com/petar-djukic/keyvalues/internal/vpk"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

const robotStandard = `WaveSchedule
{
	Templates
	{
		T_TFBot_Giant_Soldier
		{
			Class Soldier
		}
	}
}
`

const mission = `#base robot_standard.pop
WaveSchedule
{
	Wave
	{
		WaveSpawn
		{
			Name "w1"
			TFBot
			{
				Template T_TFBot_Giant_Soldier
			}
		}
	}
}
`

func newTestService(t *testing.T, fsys afero.Fs, mutate func(*Config)) *Service {
	t.Helper()
	schemas, err := config.DefaultSchemas()
	require.NoError(t, err)
	cfg := Config{Fs: fsys, Schemas: schemas}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0o644))
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unnamed schema", cfg: Config{Schemas: []types.Schema{{}}}},
		{name: "negative concurrency", cfg: Config{Concurrency: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestService_OpenIndexesIncludes(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"/pop/robot_standard.pop": robotStandard})
	s := newTestService(t, fsys, nil)

	doc := s.Open("/pop/mvm_test.pop", mission)
	require.NoError(t, doc.Err)
	require.NoError(t, doc.IncludeErr)
	assert.Equal(t, []string{"/pop/robot_standard.pop"}, doc.Included)

	defs := s.Definitions("t_tfbot_giant_soldier", "template")
	require.Len(t, defs, 1)
	assert.Equal(t, "/pop/robot_standard.pop", defs[0].URI)

	defs = s.DefinitionAt("/pop/mvm_test.pop", types.Position{Line: 10, Character: 15})
	require.Len(t, defs, 1)
	assert.Equal(t, "/pop/robot_standard.pop", defs[0].URI)

	refs := s.ReferencesAt("/pop/robot_standard.pop", types.Position{Line: 4, Character: 4})
	require.Len(t, refs, 1)
	assert.Equal(t, "/pop/mvm_test.pop", refs[0].URI)

	assert.Equal(t, []string{"/pop/mvm_test.pop", "/pop/robot_standard.pop"}, s.URIs())
	assert.Len(t, s.AllDefinitions("wavespawn"), 1)
}

func TestService_ReopenInvalidates(t *testing.T) {
	s := newTestService(t, afero.NewMemMapFs(), nil)

	s.Open("/pop/a.pop", robotStandard)
	require.Len(t, s.Definitions("t_tfbot_giant_soldier", "template"), 1)

	s.Open("/pop/a.pop", "WaveSchedule\n{\n\tTemplates\n\t{\n\t\tT_Medic\n\t\t{\n\t\t\tClass Medic\n\t\t}\n\t}\n}\n")
	assert.Empty(t, s.Definitions("t_tfbot_giant_soldier", "template"))
	assert.Len(t, s.Definitions("T_Medic", "template"), 1)

	s.Close("/pop/a.pop")
	assert.Empty(t, s.Definitions("t_medic", "template"))
	_, ok := s.Document("/pop/a.pop")
	assert.False(t, ok)
}

func TestService_OpenWithErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"/pop/loop.pop": "#base a.pop\n"})
	s := newTestService(t, fsys, nil)

	doc := s.Open("/pop/a.pop", "#base loop.pop\nWaveSchedule\n{\n\tTemplates\n\t{\n\t\tT_A\n\t\t{\n\t\t\tClass Scout\n\t\t}\n\t}\n")
	var se *parser.SyntaxError
	assert.ErrorAs(t, doc.Err, &se)
	var cycle *index.IncludeCycleError
	assert.ErrorAs(t, doc.IncludeErr, &cycle)

	assert.Len(t, s.Definitions("t_a", "template"), 1, "partial tree is indexed")
}

func TestService_Scan(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/ws/pop/robot_standard.pop": robotStandard,
		"/ws/pop/mvm_test.pop":       "WaveSchedule\n{\n\tWave\n\t{\n\t\tWaveSpawn\n\t\t{\n\t\t\tTemplate T_Missing\n\t\t\tTemplate T_TFBot_Giant_Soldier\n\t\t}\n\t}\n}\n",
		"/ws/broken.vdf":             "\"unterminated\n",
	})
	s := newTestService(t, fsys, nil)

	res, err := s.Scan("/ws")
	require.NoError(t, err)
	assert.Len(t, res.Documents, 3)
	assert.Len(t, res.Errors, 1)

	unresolved := s.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, "t_missing", unresolved[0].Name)

	doc, ok := s.Document("/ws/broken.vdf")
	require.True(t, ok)
	assert.Error(t, doc.Err)
}

func TestService_Format(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"/pop/x.pop": "WaveSpawn\n{\n\tTemplate x\n\tName y\n}\n"})

	plain := newTestService(t, fsys, nil)
	out, err := plain.Format("/pop/x.pop", "a   b\n")
	require.NoError(t, err)
	assert.Equal(t, "a\t\tb\n", out)

	out, err = plain.Format("/pop/x.pop", "a {\n")
	assert.Error(t, err)
	assert.Equal(t, "a {\n", out)

	sorted := newTestService(t, fsys, func(c *Config) { c.SortKeys = true })
	changed, err := sorted.FormatFile("/pop/x.pop")
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := afero.ReadFile(fsys, "/pop/x.pop")
	require.NoError(t, err)
	assert.Equal(t, "WaveSpawn\n{\n\tName\t\t\ty\n\tTemplate\t\tx\n}\n", string(data))

	changed, err = sorted.FormatFile("/pop/x.pop")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = sorted.FormatFile("/pop/missing.pop")
	assert.Error(t, err)
}

func TestService_Links(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/game/tf/materials/brick/wall.vtf": "VTF",
		"/game/tf/materials/brick/wall.vmt": "\"LightmappedGeneric\"\n{\n\t\"$basetexture\" \"brick/wall\"\n\t\"$bumpmap\" \"brick/wall_normal\"\n\t\"$surfaceprop\" \"brick\"\n}\n",
	})
	s := newTestService(t, fsys, func(c *Config) { c.SearchPaths = []string{"/game/tf"} })

	_, err := s.Links("/game/tf/materials/brick/wall.vmt")
	assert.ErrorIs(t, err, ErrNotOpen)

	_, err = s.OpenFile("/game/tf/materials/brick/wall.vmt")
	require.NoError(t, err)

	links, err := s.Links("/game/tf/materials/brick/wall.vmt")
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, "$basetexture", links[0].Symbol.Key)
	assert.Equal(t, []string{"materials/brick/wall.vtf"}, links[0].Candidates)
	require.Len(t, links[0].Locations, 1)
	assert.Equal(t, "/game/tf/materials/brick/wall.vtf", links[0].Locations[0].Path)

	data, err := s.ReadLocation(links[0].Locations[0])
	require.NoError(t, err)
	assert.Equal(t, "VTF", string(data))

	assert.Empty(t, links[1].Locations)
}

// textureArchive encodes a _dir file holding materials/brick/tile_normal.vtf
// as embedded data.
func textureArchive(content string) []byte {
	var table bytes.Buffer
	for _, s := range []string{"vtf", "materials/brick", "tile_normal"} {
		table.WriteString(s)
		table.WriteByte(0)
	}
	binary.Write(&table, binary.LittleEndian, uint32(0))
	binary.Write(&table, binary.LittleEndian, uint16(0))
	table.WriteByte(vpk.DirArchiveIndex)
	table.WriteByte(0)
	offsetAt := table.Len()
	binary.Write(&table, binary.LittleEndian, uint32(0))
	binary.Write(&table, binary.LittleEndian, uint32(len(content)))
	binary.Write(&table, binary.LittleEndian, uint16(0xFFFF))
	table.Write([]byte{0, 0, 0})
	binary.LittleEndian.PutUint32(table.Bytes()[offsetAt:], uint32(28+table.Len()))

	header := make([]byte, 28)
	binary.LittleEndian.PutUint32(header[0:], 0x55AA1234)
	binary.LittleEndian.PutUint32(header[4:], 2)
	binary.LittleEndian.PutUint32(header[8:], uint32(table.Len()))
	return append(append(header, table.Bytes()...), content...)
}

func TestService_LinksBackslashesAndHeldArchive(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/game/tf/materials/brick/tile.vtf": "VTF",
		"/game/tf/materials/brick/tile.vmt": "\"LightmappedGeneric\"\n{\n\t\"$basetexture\" \"brick\\tile\"\n\t\"$bumpmap\" \"brick\\tile_normal\"\n}\n",
		"/game/tf/tf2_textures_dir.vpk":     string(textureArchive("NRM")),
	})
	s := newTestService(t, fsys, func(c *Config) {
		c.SearchPaths = []string{"/game/tf"}
		c.Archives = []string{"/game/tf/tf2_textures_dir.vpk"}
	})
	_, err := s.OpenFile("/game/tf/materials/brick/tile.vmt")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		links, err := s.Links("/game/tf/materials/brick/tile.vmt")
		require.NoError(t, err)
		require.Len(t, links, 2)

		assert.Equal(t, []string{"materials/brick/tile.vtf"}, links[0].Candidates)
		require.Len(t, links[0].Locations, 1)
		assert.Equal(t, "/game/tf/materials/brick/tile.vtf", links[0].Locations[0].Path)

		require.Len(t, links[1].Locations, 1)
		assert.Equal(t, types.Location{Path: "materials/brick/tile_normal.vtf", Archive: "/game/tf/tf2_textures_dir.vpk"}, links[1].Locations[0])
		assert.Equal(t, 1, s.ArchivesOpen())
	}

	links, err := s.Links("/game/tf/materials/brick/tile.vmt")
	require.NoError(t, err)
	data, err := s.ReadLocation(links[1].Locations[0])
	require.NoError(t, err)
	assert.Equal(t, "NRM", string(data))
	assert.Equal(t, 1, s.ArchivesOpen())

	s.Shutdown()
	assert.Equal(t, 0, s.ArchivesOpen())
}

func TestService_ChangedAndRemoved(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := newTestService(t, fsys, nil)

	writeFiles(t, fsys, map[string]string{"/pop/a.pop": robotStandard})
	s.Changed("/pop/a.pop")
	assert.Len(t, s.Definitions("t_tfbot_giant_soldier", "template"), 1)

	s.Removed("/pop/a.pop")
	assert.Empty(t, s.Definitions("t_tfbot_giant_soldier", "template"))

	s.Changed("/pop/missing.pop")
	assert.Empty(t, s.URIs())
}

func TestService_OpenArchive(t *testing.T) {
	s := newTestService(t, afero.NewMemMapFs(), nil)
	_, err := s.OpenArchive("/game/tf/missing_dir.vpk")
	assert.Error(t, err)
}
