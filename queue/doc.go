// Package queue moves missions through Redis.
//
// Goals are submitted as Jobs onto a list (LPUSH) and claimed by workers
// with BRPOP, so each job is run by exactly one worker. Progress events are
// fanned out over pub/sub, and finished missions are kept in a capped
// journal list for later review.
//
// Key layout:
//
//	stingbot:missions:queue        list of pending Jobs (JSON)
//	stingbot:missions:events       pub/sub channel of mission.Event (JSON)
//	stingbot:missions:history      capped list of mission.Record (JSON), newest first
//	stingbot:worker:<id>:health    heartbeat with a 30s TTL
//	stingbot:workers:active        number of running workers
//
// Example:
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{URL: "redis://localhost:6379"})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	job, err := client.Submit(ctx, "Assess 10.0.0.5 for exposed services")
package queue
