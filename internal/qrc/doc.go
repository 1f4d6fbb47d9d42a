// Package qrc implements the JSON-RPC 2.0 client for the Q-SYS Remote
// Control (QRC) protocol.
//
// QRC is a request/response protocol spoken by Q-SYS cores on TCP port 1710.
// Messages are JSON-RPC 2.0 envelopes delimited by a NUL byte (0x00). The
// core also pushes unsolicited notifications (EngineStatus, change group
// auto-poll results) on the same connection.
//
// The client here is deliberately minimal: it correlates requests with
// responses, enforces the fixed QRC method vocabulary, runs a NoOp keepalive
// (the core drops sessions after 60 seconds of silence), and surfaces
// notifications through a callback. Session supervision (reconnect policy,
// circuit breaking, health history) belongs to the caller, not this package.
//
// # Usage
//
//	client, err := qrc.Dial(ctx, qrc.Options{
//	    Address:         "192.168.1.50:1710",
//	    ResponseTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	result, err := client.Send(ctx, qrc.MethodControlGet, []string{"MainGain"})
package qrc
