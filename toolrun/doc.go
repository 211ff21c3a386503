// Package toolrun drives the request / execute / respond cycle of tool
// calling: the model is asked a question with tool declarations attached,
// requested calls are executed locally through a tool.Registry, and the
// results are sent back until the model answers without calling a tool or
// Options.MaxIterations model calls were made.
//
//	runner := toolrun.New(anthropic.NewModel(), tool.NewRegistry(tool.NewWeatherTool()),
//		func(o *toolrun.Options) { o.MaxIterations = 10 })
//	res, err := runner.Run(ctx, "What is the weather in SF?")
package toolrun
