// Package client provides a Go SDK for the task scheduler's read-only
// HTTP/WebSocket observability surface.
//
// Task submission and cancellation are in-process Supervisor calls only
// (there is no remote control protocol), so this client never creates
// or cancels a task. It only reads back what an embedded Supervisor is
// doing.
//
// # Basic Usage
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	t, err := c.GetTask(ctx, taskID)
//
// # WebSocket Events
//
//	if err := c.ConnectWebSocket(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.CloseWebSocket()
//
//	for event := range c.Events() {
//	    fmt.Printf("event: %s\n", event.Type)
//	}
//
// # Configuration
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithAPIKey("your-api-key"),
//	    client.WithTimeout(30*time.Second),
//	)
package client
