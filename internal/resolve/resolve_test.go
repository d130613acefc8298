// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package resolve

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/keyvalues/internal/vpk"
	"github.com/petar-djukic/keyvalues/pkg/types"
)

var vmtRule = types.LinkRule{Keys: []string{"$basetexture", "include"}, Prefix: "materials", Extensions: []string{".vmt"}}

// singleEntryArchive encodes a _dir file holding materials/brick/wall.vmt
// as embedded data.
func singleEntryArchive(content string) []byte {
	var table bytes.Buffer
	for _, s := range []string{"vmt", "materials/brick", "wall"} {
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
	out := append(header, table.Bytes()...)
	return append(out, content...)
}

func gameFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/game/tf/materials/brick/wall.vmt", []byte("loose"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/game/tf/tf2_misc_dir.vpk", singleEntryArchive("packed"), 0o644))
	return fsys
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name  string
		value string
		rule  types.LinkRule
		want  []string
	}{
		{name: "prefix and extension", value: "brick/wall", rule: vmtRule, want: []string{"materials/brick/wall.vmt"}},
		{name: "already complete", value: `Materials\Brick\Wall.vmt`, rule: vmtRule, want: []string{"Materials/Brick/Wall.vmt"}},
		{name: "prefix only", value: "ui/hit.wav", rule: types.LinkRule{Prefix: "sound"}, want: []string{"sound/ui/hit.wav"}},
		{name: "several extensions", value: "x", rule: types.LinkRule{Extensions: []string{".vmt", ".vtf"}}, want: []string{"x.vmt", "x.vtf"}},
		{name: "leading slash", value: "/abs/x", want: []string{"abs/x"}},
		{name: "dot segments", value: "brick/../wall", rule: vmtRule, want: []string{"materials/wall.vmt"}},
		{name: "empty", value: "  ", rule: vmtRule, want: nil},
		{name: "backslashes are separators", value: `brick\tile\normal`, rule: vmtRule, want: []string{"materials/brick/tile/normal.vmt"}},
		{name: "doubled backslash", value: `brick\\wall`, rule: vmtRule, want: []string{"materials/brick/wall.vmt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.value, tt.rule))
		})
	}
}

func TestMatch(t *testing.T) {
	rules := []types.LinkRule{vmtRule, {Keys: []string{"sound"}, Prefix: "sound"}}

	r, ok := Match(&types.Symbol{Kind: types.Pair, Key: "$BaseTexture", Value: "x"}, rules)
	require.True(t, ok)
	assert.Equal(t, "materials", r.Prefix)

	r, ok = Match(&types.Symbol{Kind: types.Pair, Key: "sound", Value: "x"}, rules)
	require.True(t, ok)
	assert.Equal(t, "sound", r.Prefix)

	_, ok = Match(&types.Symbol{Kind: types.Object, Key: "sound"}, rules)
	assert.False(t, ok)
	_, ok = Match(nil, rules)
	assert.False(t, ok)
}

func TestResolver_Resolve(t *testing.T) {
	fsys := gameFs(t)
	cache := vpk.NewCache(fsys, nil)
	r := &Resolver{
		Fs:          fsys,
		SearchPaths: []string{"/game/custom", "/game/tf"},
		Archives:    []string{"/game/tf/tf2_misc_dir.vpk"},
		Cache:       cache,
	}

	locs, err := r.Resolve("Brick/Wall", vmtRule)
	require.NoError(t, err)
	assert.Equal(t, []types.Location{
		{Path: "/game/tf/materials/brick/wall.vmt"},
		{Path: "materials/brick/wall.vmt", Archive: "/game/tf/tf2_misc_dir.vpk"},
	}, locs)
	assert.Equal(t, 1, cache.Len())

	locs, err = r.Resolve("brick/missing", vmtRule)
	require.NoError(t, err)
	assert.Empty(t, locs)

	r.Close()
	assert.Equal(t, 0, cache.Len())
}

func TestResolver_HoldsArchiveAcrossCalls(t *testing.T) {
	fsys := gameFs(t)
	cache := vpk.NewCache(fsys, nil)
	r := &Resolver{Fs: fsys, Archives: []string{"/game/tf/tf2_misc_dir.vpk"}, Cache: cache}

	first, err := r.open("/game/tf/tf2_misc_dir.vpk")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve("brick/wall", vmtRule)
		require.NoError(t, err)
		data, err := r.ReadFile(types.Location{Path: "materials/brick/wall.vmt", Archive: "/game/tf/tf2_misc_dir.vpk"})
		require.NoError(t, err)
		assert.Equal(t, "packed", string(data))
	}
	again, err := r.open("/game/tf/tf2_misc_dir.vpk")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, cache.Len())

	r.Close()
	assert.Equal(t, 0, cache.Len())
	r.Close()
	assert.Equal(t, 0, cache.Len())
}

func TestResolver_ReadFile(t *testing.T) {
	fsys := gameFs(t)
	for _, cache := range []*vpk.Cache{nil, vpk.NewCache(fsys, nil)} {
		r := &Resolver{Fs: fsys, Cache: cache}

		data, err := r.ReadFile(types.Location{Path: "/game/tf/materials/brick/wall.vmt"})
		require.NoError(t, err)
		assert.Equal(t, "loose", string(data))

		data, err = r.ReadFile(types.Location{Path: "materials/brick/wall.vmt", Archive: "/game/tf/tf2_misc_dir.vpk"})
		require.NoError(t, err)
		assert.Equal(t, "packed", string(data))
	}
}

func TestResolver_BadArchive(t *testing.T) {
	fsys := gameFs(t)
	r := &Resolver{
		Fs:          fsys,
		SearchPaths: []string{"/game/tf"},
		Archives:    []string{"/game/tf/missing_dir.vpk", "/game/tf/tf2_misc_dir.vpk"},
	}

	locs, err := r.Resolve("brick/wall", vmtRule)
	assert.Error(t, err)
	assert.Len(t, locs, 2)
}
