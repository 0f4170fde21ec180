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
	"net"

	"golang.org/x/sys/unix"
)

// verifyPeerUID checks that the process on the other end of a UNIX domain
// socket connection is running as uid. It fails closed: any error reading
// the peer's credentials is treated as a mismatch.
func verifyPeerUID(conn *net.UnixConn, uid int) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return &ClientError{Kind: PeerCredMismatch, Err: fmt.Errorf("peer credentials unavailable: %w", err)}
	}

	var ucred *unix.Ucred
	var getErr error
	ctlErr := raw.Control(func(fd uintptr) {
		ucred, getErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctlErr != nil {
		return &ClientError{Kind: PeerCredMismatch, Err: fmt.Errorf("peer credentials unavailable: %w", ctlErr)}
	}
	if getErr != nil {
		return &ClientError{Kind: PeerCredMismatch, Err: fmt.Errorf("SO_PEERCRED: %w", getErr)}
	}

	if int(ucred.Uid) != uid {
		return &ClientError{Kind: PeerCredMismatch, Err: fmt.Errorf("peer uid %d, expected %d", ucred.Uid, uid)}
	}
	return nil
}
