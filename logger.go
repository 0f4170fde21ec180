// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

package govici

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// Logger is the logging seam a Client uses to trace frame-level activity.
// Rather than introduce a hard dependency on one logging backend, Client
// accepts anything satisfying this interface; HCLogAdapter bridges the
// common case of an application already using hclog.
type Logger interface {
	Debugf(format string, args ...interface{})
}

// HCLogAdapter adapts an hclog.Logger to the Logger interface.
type HCLogAdapter struct {
	L hclog.Logger
}

// Debugf implements Logger.
func (a HCLogAdapter) Debugf(format string, args ...interface{}) {
	if a.L == nil {
		return
	}
	a.L.Debug(fmt.Sprintf(format, args...))
}
