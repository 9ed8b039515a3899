/*
 * trimmer_test.go, part of chemlive.
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

package modifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/chemlive/session"
)

type countingHistory struct {
	*session.Memory
	deletes int
}

func (c *countingHistory) DeleteFrom(ctx context.Context, start int) error {
	c.deletes++
	return c.Memory.DeleteFrom(ctx, start)
}

func TestTrim(t *testing.T) {
	ctx := context.Background()
	h := &countingHistory{Memory: session.NewMemory(snapshots(t, 10)...)}
	require.NoError(t, h.SetStep(4))
	step, removed, err := Trim(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 4, step)
	assert.Equal(t, 5, removed)
	frames := h.Frames()
	require.Len(t, frames, 5)
	for i, f := range frames {
		assert.Equal(t, float64(i), f.Positions().At(0, 0))
	}

	//nothing after the viewing index: no-op
	step, removed, err = Trim(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 4, step)
	assert.Zero(t, removed)
	assert.Equal(t, 1, h.deletes)
	n, _ := h.Len(ctx)
	assert.Equal(t, 5, n)
}

func TestTrimEmpty(t *testing.T) {
	h := &countingHistory{Memory: session.NewMemory()}
	step, removed, err := Trim(context.Background(), h)
	require.NoError(t, err)
	assert.Zero(t, step)
	assert.Zero(t, removed)
	assert.Zero(t, h.deletes)
}
