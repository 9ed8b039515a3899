/*
 * memory_test.go, part of chemlive.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chem "github.com/rmera/chemlive"
	v3 "github.com/rmera/chemlive/v3"
)

// frames returns n single-atom snapshots, the atom of frame i being at x=i.
func frames(t *testing.T, n int) []*chem.Snapshot {
	t.Helper()
	ret := make([]*chem.Snapshot, n)
	for i := range ret {
		pos, err := v3.NewMatrix([]float64{float64(i), 0, 0})
		require.NoError(t, err)
		s, err := chem.NewStructure([]int{1}, pos, nil, [3]bool{})
		require.NoError(t, err)
		ret[i], err = chem.NewSnapshot(s)
		require.NoError(t, err)
	}
	return ret
}

func TestMemoryHistory(t *testing.T) {
	ctx := context.Background()
	M := NewMemory(frames(t, 10)...)
	n, _ := M.Len(ctx)
	step, _ := M.Step(ctx)
	assert.Equal(t, 10, n)
	assert.Equal(t, 9, step)

	require.NoError(t, M.SetStep(4))
	s, err := M.Structure(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4.0, s.Positions.At(0, 0))
	assert.Nil(t, s.Calculator())

	require.NoError(t, M.DeleteFrom(ctx, 5))
	n, _ = M.Len(ctx)
	assert.Equal(t, 5, n)

	require.NoError(t, M.Extend(ctx, frames(t, 3)))
	require.NoError(t, M.Append(ctx, frames(t, 1)[0]))
	require.NoError(t, M.Extend(ctx, frames(t, 2)))
	assert.Len(t, M.Frames(), 11)
	assert.Equal(t, []int{3, 2}, M.Batches())

	//deleting the viewed frame moves the view back
	require.NoError(t, M.SetStep(10))
	require.NoError(t, M.DeleteFrom(ctx, 2))
	step, _ = M.Step(ctx)
	assert.Equal(t, 1, step)

	assert.ErrorIs(t, M.DeleteFrom(ctx, 3), ErrOutOfRange)
	assert.ErrorIs(t, M.SetStep(-1), ErrOutOfRange)
	assert.True(t, errors.Is(M.Append(ctx, nil), chem.ErrInvalidStructureState))
}

func TestMemoryStructure(t *testing.T) {
	ctx := context.Background()
	M := NewMemory()
	_, err := M.Structure(ctx)
	assert.ErrorIs(t, err, ErrOutOfRange)
	f := frames(t, 2)
	require.NoError(t, M.SetStructure(ctx, f[1]))
	s, err := M.Structure(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Positions.At(0, 0))
	require.NoError(t, M.SetStructure(ctx, f[0]))
	n, _ := M.Len(ctx)
	assert.Equal(t, 1, n)
}

func TestMemoryBookmarks(t *testing.T) {
	ctx := context.Background()
	M := NewMemory(frames(t, 1)...)
	require.NoError(t, M.UpsertBookmarks(ctx, map[int]string{0: "start", 3: "old"}))
	require.NoError(t, M.UpsertBookmarks(ctx, map[int]string{3: "new"}))
	b, err := M.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "start", 3: "new"}, b)
	b[7] = "not in the session"
	b, _ = M.Bookmarks(ctx)
	assert.Len(t, b, 2)
}
