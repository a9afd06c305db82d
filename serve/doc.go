// Package serve runs stingbot as a long-lived mission worker.
//
// A Server exposes the standard gRPC health service so orchestrators and
// load balancers can probe the process. A Worker claims jobs from the mission
// queue one at a time and runs each in its own workspace directory,
// <root>/missions/<job-id>, so concurrent workers never share attack-graph
// files.
//
//	srv, err := serve.NewServer(serve.WithPort(50051))
//	if err != nil {
//		return err
//	}
//	w := serve.NewWorker(client, factory, root, serve.WithHealth(srv.HealthServer()))
//
//	go w.Run(ctx)
//	return srv.Serve(ctx)
//
// The worker reports SERVING under ServiceName while its loop runs and
// NOT_SERVING once it returns.
package serve
