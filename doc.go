// Package mcpruntime manages MCP servers inside a host process: server
// lifecycle, host application lifecycle signals, resource monitoring,
// and background tool execution.
//
// # Running a server
//
// A ServerInstance drives one MCP server endpoint through its
// lifecycle. The default protocol layer wraps the official MCP SDK
// server:
//
//	endpoint := mcpruntime.NewEndpoint("my-server", "1.0.0")
//
//	err := endpoint.AddTool("add", "Adds two numbers",
//	    mcpruntime.SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
//	    func(ctx context.Context, input map[string]any) (map[string]any, error) {
//	        a := input["a"].(float64)
//	        b := input["b"].(float64)
//	        return map[string]any{"value": a + b}, nil
//	    },
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := mcpruntime.NewServerInstance(endpoint, mcpruntime.DefaultConfig(),
//	    mcpruntime.WithInstanceLogger(slog.Default()),
//	)
//	defer server.Dispose(ctx)
//
//	if err := server.Start(ctx, nil); err != nil { // nil transport = stdio
//	    log.Fatal(err)
//	}
//
// Host application lifecycle events feed straight into the instance,
// which pauses, resumes, or sheds resources according to its
// configuration:
//
//	server.HandleLifecycleSignal(ctx, mcpruntime.SignalPaused)
//
// # Coordinating several servers
//
// A ServerManager aggregates instances behind one registry with
// start/stop sweeps and a broadcast view of every server's state:
//
//	manager := mcpruntime.NewServerManager()
//	defer manager.Dispose(ctx)
//
//	if err := manager.Register("tools", server); err != nil {
//	    log.Fatal(err)
//	}
//
//	states, cancel := manager.States()
//	defer cancel()
//	go func() {
//	    for snapshot := range states {
//	        fmt.Printf("servers: %v\n", snapshot)
//	    }
//	}()
//
//	_ = manager.StartAll(ctx)
//
// # Background tool execution
//
// A BackgroundTaskRunner executes named tool invocations off the
// caller's path, on an isolated worker when one can be spawned and in
// process otherwise:
//
//	runner := mcpruntime.NewBackgroundTaskRunner(executor)
//	defer runner.Dispose()
//
//	id, err := runner.EnqueueToolExecution("calculator",
//	    map[string]any{"operation": "add", "a": 2.0, "b": 3.0}, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	task, _ := runner.Task(id)
//	statuses, cancel := task.Statuses()
//	defer cancel()
//	for status := range statuses {
//	    if status.Terminal() {
//	        break
//	    }
//	}
package mcpruntime
