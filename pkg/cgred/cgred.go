//go:build linux

// Package cgred talks to the cgroup rules engine daemon (cgrulesengd).
// The daemon moves processes between cgroups according to its rule set and
// has to be told about processes that manage their cgroup membership
// themselves, otherwise it may undo their assignment at any time.
package cgred

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// Wire protocol of cgrulesengd: the client sends its pid and a flag word as
// two native-endian 32-bit integers, the daemon answers with a fixed string.
const (
	flagUnchangeChildren int32 = 1
	successReply               = "SUCCESS: Stored PID"
)

var (
	socketPath  = "/var/run/cgred.socket"
	dialTimeout = time.Second
)

// RegisterUnchangedProcess asks a running cgrulesengd to leave pid and its
// future children in whatever cgroup they are placed in. The daemon is
// optional, so every failure only results in a debug message.
func RegisterUnchangedProcess(pid int) bool {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		// no daemon around
		return false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(dialTimeout))

	if err := binary.Write(conn, binary.NativeEndian, int32(pid)); err != nil {
		logrus.Debugf("Cannot send pid to cgrulesengd: %v", err)
		return false
	}
	if err := binary.Write(conn, binary.NativeEndian, flagUnchangeChildren); err != nil {
		logrus.Debugf("Cannot send flags to cgrulesengd: %v", err)
		return false
	}

	reply := make([]byte, len(successReply))
	if _, err := io.ReadFull(conn, reply); err != nil {
		logrus.Debugf("Cannot read reply from cgrulesengd: %v", err)
		return false
	}
	if string(reply) != successReply {
		logrus.Debugf("cgrulesengd did not store pid %d: %s", pid, reply)
		return false
	}
	return true
}
