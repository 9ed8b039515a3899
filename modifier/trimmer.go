/*
 * trimmer.go, part of chemlive.
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
	"fmt"
)

// History is the part of a session that Trim needs.
type History interface {
	Len(ctx context.Context) (int, error)
	Step(ctx context.Context) (int, error)
	DeleteFrom(ctx context.Context, start int) error
}

// Trim deletes the frames after the viewing index of h, if there are any, so a new run continues
// from the frame the user is looking at. It returns the viewing index and the number of frames
// deleted. The deletion can't be undone.
func Trim(ctx context.Context, h History) (step, removed int, err error) {
	n, err := h.Len(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("trim: %w", err)
	}
	step, err = h.Step(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("trim: %w", err)
	}
	if n <= step+1 {
		return step, 0, nil
	}
	if err := h.DeleteFrom(ctx, step+1); err != nil {
		return step, 0, fmt.Errorf("trim: %w", err)
	}
	return step, n - step - 1, nil
}
