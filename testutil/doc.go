// Package testutil provides in-memory fakes and fixtures for gridwatch tests.
//
// MockNATSClient - In-memory NATS client:
//   - Matches the Subscribe/Publish signatures of natsclient.Client
//   - Stores all published messages for verification
//   - Delivers synchronously to exact-subject subscribers
//   - Thread-safe for concurrent use
//
// MockStage - Configurable pipeline stage:
//   - Declares arbitrary accepted and emitted kinds
//   - Optional ProcessFunc, passthrough otherwise
//   - Counts Process calls
//
// Fixtures:
//   - ReadingJSON encodes a reading the way sensors publish it
//   - Ramp and Constant build deterministic series
//
// Example:
//
//	client := testutil.NewMockNATSClient()
//	src, _ := natssource.New(client, natssource.Config{Prefix: "grid"})
//	_ = src.Start(ctx)
//	_ = client.Publish(ctx, "grid.voltage", testutil.ReadingJSON("voltage", 1, 230.4))
package testutil
