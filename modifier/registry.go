/*
 * registry.go, part of chemlive.
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

// Registrar binds run kinds to this process, such as a session.Client.
type Registrar interface {
	Register(ctx context.Context, kind string, public bool, defaults any) error
}

// Kinds are the run kinds chemlive offers, in the order they are registered.
var Kinds = []Kind{MolecularDynamics, GeomOpt}

// Register registers every run kind with r, with the defaults in defaults, or the built-in
// ones for kinds missing from it. If public is true, the kinds are offered to every user of
// the service.
func Register(ctx context.Context, r Registrar, public bool, defaults map[Kind]RunConfig) error {
	for _, k := range Kinds {
		cfg, ok := defaults[k]
		if !ok {
			cfg, _ = Defaults(k)
		}
		if err := r.Register(ctx, string(k), public, cfg); err != nil {
			return fmt.Errorf("registering %s: %w", k, err)
		}
	}
	return nil
}
