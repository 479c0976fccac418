// Package client provides a thin Go client for cansrv's TCP control
// protocol.
//
// # Basic Usage
//
//	c, err := client.Dial("localhost:9000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	taskID, err := c.CANSend("123", "DEADBEEF", 1000, "vcan0", 5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	lines, err := c.ListTasks()
package client
